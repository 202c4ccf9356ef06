// Package gemini is the alternate vision provider backed by the Google Gen AI
// SDK. It mirrors llm.Client.AnalyzeFrames so the orchestrator can switch
// providers through configuration alone.
package gemini
