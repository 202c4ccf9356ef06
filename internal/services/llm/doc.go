// Package llm provides a client for OpenAI-compatible chat completion
// endpoints such as DashScope's compatible mode.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.AnalyzeFrames: one multimodal request carrying a text prompt followed
// by up to MaxImages inline images, sent to the vision model.
// Client.Complete: system/user prompt pair sent to the text model with an
// explicit temperature and token budget.
// Client.HealthCheck: verify API key and model availability.
//
// # Errors
//
// Non-2xx answers, undecodable bodies and error envelopes are returned as
// *services.RemoteError, which matches services.ErrRemoteService. The client
// never retries; a failed call is reported to the caller as is. Each request
// is bounded by the configured timeout.
package llm
