// Package dashscope talks to DashScope's native multimodal-generation
// endpoint to transcribe audio.
//
// The endpoint is derived from the OpenAI-compatible base URL by swapping the
// /compatible-mode/v1 suffix for the native generation path. Audio is inlined
// as a base64 data URL. The answer's message content arrives in several
// shapes depending on the model; content decodes all of them and Text
// normalizes them to plain text in one place.
package dashscope
