// Package inference wraps the external vision model behind a single call:
// one image in, raw text out.
//
// Providers never retry; every failure is returned as *InferenceError with a
// Retryable hint so the pipeline can apply its own policy. The ollama
// provider talks to the local /api/chat endpoint, openrouter speaks the
// OpenAI-compatible chat completions API, and gemini uses the Google GenAI
// SDK.
package inference
