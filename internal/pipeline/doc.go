// Package pipeline runs the analysis of one video URL end to end.
//
// Stages run strictly in order: acquire, validate duration, plan the sampling
// interval, extract keyframes, analyze the frames with a vision model and
// finally transcribe the audio. Every stage except transcription is fatal on
// failure. Transcription degrades to an Unavailable outcome with a logged
// warning so that a breakdown can still be produced from the visuals alone.
//
// Media artifacts are reused from the content cache whenever they are
// complete. AI results are only reused when analysis.reuse_cached_results is
// enabled; a cached video never implies a cached analysis.
package pipeline
