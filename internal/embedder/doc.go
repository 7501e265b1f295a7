// Package embedder generates vector embeddings for text through
// pluggable providers (Ollama, OpenAI, or a deterministic local
// fallback).
//
// All providers honor a fixed dimension contract: every returned
// vector has exactly Dimension() floats, verified at the provider
// boundary so dimension drift never reaches the index.
//
// Remote providers retry transient failures with exponential backoff
// configured by RetryConfig; retries stop immediately when the context
// is cancelled. Provider calls can be long-running and must never be
// made while holding engine locks.
package embedder
