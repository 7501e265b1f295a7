// Package retriever implements the query side of the engine: it embeds
// a query, searches a session's vector index, filters and deduplicates
// the hits, and optionally reorders them through a rerank API.
package retriever
