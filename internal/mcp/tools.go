package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"docchat/internal/engine"
	"docchat/internal/retriever"
	"docchat/internal/storage"
	"docchat/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeSessionNotFound = -32001 // Session does not exist
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
	ErrorCodeNoGenerator     = -32005 // Answer generation not configured
)

// Answers used by the ask tool when no generated answer is possible.
const (
	answerSearchFailed = "Sorry, I could not search the documents."
	answerNoMatches    = "No relevant content found in the indexed documents."
)

// handleCreateSession handles the create_session tool invocation
func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	name := getStringDefault(args, "name", "")

	sessionID, err := s.engine.CreateSession(ctx, name)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to create session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"session_id": sessionID,
		"name":       name,
	})), nil
}

// handleIndexDocument handles the index_document tool invocation
func (s *Server) handleIndexDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sessionID, err := requireSession(ctx, s.store, args)
	if err != nil {
		return nil, err
	}

	filename, ok := args["filename"].(string)
	if !ok || filename == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "filename parameter is required", map[string]interface{}{
			"param":  "filename",
			"reason": "missing or empty",
		})
	}

	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing",
		})
	}

	fileID := getStringDefault(args, "file_id", "")

	stats, err := s.engine.IndexDocument(ctx, sessionID, engine.Document{
		FileID:   fileID,
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"indexed":     true,
		"file_id":     stats.FileID,
		"filename":    stats.Filename,
		"chunks":      stats.Chunks,
		"cache_hits":  stats.CacheHits,
		"duration_ms": stats.Duration.Milliseconds(),
	})), nil
}

// handleQueryDocuments handles the query_documents tool invocation
func (s *Server) handleQueryDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sessionID, err := requireSession(ctx, s.store, args)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	opts, mcpErr := retrievalOptions(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	result, err := s.engine.Query(ctx, sessionID, query, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":    result.Query,
		"reranked": result.Reranked,
		"chunks":   formatChunks(result.Chunks),
	})), nil
}

// handleAsk handles the ask tool invocation
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sessionID, err := requireSession(ctx, s.store, args)
	if err != nil {
		return nil, err
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	if s.generator == nil {
		return nil, newMCPError(ErrorCodeNoGenerator, "answer generation is not configured", map[string]interface{}{
			"reason": "no generator credentials available",
		})
	}

	opts, mcpErr := retrievalOptions(args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	result, err := s.engine.Query(ctx, sessionID, question, opts)
	if err != nil {
		// A search failure and an empty result read differently to
		// the user.
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"answer":  answerSearchFailed,
			"sources": []interface{}{},
		})), nil
	}
	if len(result.Chunks) == 0 {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"answer":  answerNoMatches,
			"sources": []interface{}{},
		})), nil
	}

	answer, err := s.generator.Generate(ctx, question, result.Chunks)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "answer generation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"answer":  answer,
		"sources": formatChunks(result.Chunks),
	})), nil
}

// handleSessionStatus handles the session_status tool invocation
func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sessionID, err := requireSession(ctx, s.store, args)
	if err != nil {
		return nil, err
	}

	stats, err := s.engine.Stats(ctx, sessionID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get session status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	files := make([]interface{}, 0, len(stats.Files))
	for _, f := range stats.Files {
		files = append(files, map[string]interface{}{
			"file_id":     f.ID,
			"filename":    f.Filename,
			"size_bytes":  f.SizeBytes,
			"chunk_count": f.ChunkCount,
			"indexed_at":  f.IndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"session_id": stats.SessionID,
		"chunks":     stats.Chunks,
		"dimension":  stats.Dimension,
		"files":      files,
		"caches": map[string]interface{}{
			"cached_queries":     stats.CachedQueries,
			"memory_embeddings":  stats.MemoryEmbeddings,
			"durable_embeddings": stats.DurableEmbeddings,
		},
	})), nil
}

// handleClearSession handles the clear_session tool invocation
func (s *Server) handleClearSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sessionID, err := requireSession(ctx, s.store, args)
	if err != nil {
		return nil, err
	}

	if err := s.engine.ClearSession(ctx, sessionID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared":    true,
		"session_id": sessionID,
	})), nil
}

// Helper functions

// requireSession extracts session_id and verifies the session exists
// in the registry.
func requireSession(ctx context.Context, store storage.Store, args map[string]interface{}) (string, error) {
	sessionID, ok := args["session_id"].(string)
	if !ok || sessionID == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "session_id parameter is required", map[string]interface{}{
			"param":  "session_id",
			"reason": "missing or empty",
		})
	}
	if store != nil {
		if _, err := store.GetSession(ctx, sessionID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", newMCPError(ErrorCodeSessionNotFound, "session not found", map[string]interface{}{
					"session_id": sessionID,
				})
			}
			return "", newMCPError(ErrorCodeInternalError, "failed to look up session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return sessionID, nil
}

// retrievalOptions parses the shared retrieval parameters.
func retrievalOptions(args map[string]interface{}) (retriever.Options, error) {
	opts := retriever.Options{}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 || topK > retriever.MaxCandidates {
		return opts, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 50", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}
	opts.TopK = topK

	if raw, ok := args["file_ids"].([]interface{}); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok && id != "" {
				opts.FileIDs = append(opts.FileIDs, id)
			}
		}
	}

	if raw, ok := args["min_score"].(float64); ok {
		score := float32(raw)
		opts.MinScore = &score
	}

	return opts, nil
}

// formatChunks converts retrieved chunks into JSON-friendly maps with
// snippet-capped content.
func formatChunks(chunks []types.RetrievedChunk) []interface{} {
	out := make([]interface{}, 0, len(chunks))
	for _, c := range chunks {
		entry := map[string]interface{}{
			"chunk_id":   c.ChunkID,
			"file_id":    c.FileID,
			"filename":   c.Filename,
			"content":    types.Snippet(c.Content),
			"sequence":   c.Sequence,
			"similarity": c.Similarity,
		}
		if c.RerankScore != 0 {
			entry["rerank_score"] = c.RerankScore
		}
		out = append(out, entry)
	}
	return out
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
