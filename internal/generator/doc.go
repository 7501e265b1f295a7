// Package generator turns retrieved chunks and a question into a
// grounded answer via an OpenAI-compatible chat completion API.
package generator
