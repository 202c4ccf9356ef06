// Package workflow is the composition root of shotscribe.
//
// New turns an explicit config into the full stage graph: the content cache,
// the acquisition and keyframe stages, the vision and transcription clients,
// the analysis pipeline, the script composer, the report writer and the run
// history. Credentials are checked before anything is built so a
// misconfigured run fails before any download starts.
//
// Breakdown and Rewrite are the two user operations. Each records a history
// row, delegates to the pipeline and composer, writes the Markdown and HTML
// reports and returns their paths. Errors carry the services markers of the
// failing stage unchanged.
package workflow
