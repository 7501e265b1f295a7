package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/embedder"
	"docchat/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())
	t.Setenv(embedder.EnvProvider, embedder.ProviderLocal)
	t.Setenv(config.EnvEmbeddingDimension, "64")
	t.Setenv(config.EnvThreshold, "0")
	t.Setenv(config.EnvChunkSize, "40")

	cfg, err := config.Load()
	require.NoError(t, err)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.engine.Close() })
	return s
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	result, err := s.handleCreateSession(context.Background(), toolRequest(map[string]interface{}{
		"name": "test session",
	}))
	require.NoError(t, err)
	sessionID, _ := resultJSON(t, result)["session_id"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func testDocument() string {
	paragraphs := []string{
		"The first paragraph covers indexing pipelines in detail.",
		"The second paragraph explains vector similarity search.",
		"The third paragraph describes cache invalidation rules.",
	}
	return strings.Join(paragraphs, "\n\n")
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleCreateSession(context.Background(), toolRequest(map[string]interface{}{
		"name": "research",
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, result)
	assert.NotEmpty(t, parsed["session_id"])
	assert.Equal(t, "research", parsed["name"])
}

func TestIndexDocument(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	result, err := s.handleIndexDocument(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"filename":   "notes.txt",
		"content":    testDocument(),
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, result)
	assert.Equal(t, true, parsed["indexed"])
	assert.Equal(t, float64(3), parsed["chunks"])
	assert.NotEmpty(t, parsed["file_id"])
}

func TestIndexDocument_UnknownSession(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleIndexDocument(context.Background(), toolRequest(map[string]interface{}{
		"session_id": "no-such-session",
		"filename":   "notes.txt",
		"content":    testDocument(),
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeSessionNotFound, mcpErr.Code)
}

func TestIndexDocument_MissingParams(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	_, err := s.handleIndexDocument(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"content":    "text",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestQueryDocuments(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	_, err := s.handleIndexDocument(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"filename":   "notes.txt",
		"content":    testDocument(),
	}))
	require.NoError(t, err)

	result, err := s.handleQueryDocuments(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"query":      "The first paragraph covers indexing pipelines in detail.",
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, result)
	chunks, ok := parsed["chunks"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, chunks)

	top, ok := chunks[0].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, top["content"], "indexing pipelines")
}

func TestQueryDocuments_EmptyQuery(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	_, err := s.handleQueryDocuments(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"query":      "",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestQueryDocuments_TopKOutOfRange(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	_, err := s.handleQueryDocuments(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"query":      "anything",
		"top_k":      float64(500),
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestAsk_WithoutGenerator(t *testing.T) {
	s := newTestServer(t)
	s.generator = nil
	sessionID := createSession(t, s)

	_, err := s.handleAsk(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"question":   "What is covered?",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNoGenerator, mcpErr.Code)
}

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Generate(_ context.Context, _ string, _ []types.RetrievedChunk) (string, error) {
	return g.answer, nil
}

func TestAsk_NoMatches(t *testing.T) {
	s := newTestServer(t)
	s.generator = fixedGenerator{"should not be called"}
	sessionID := createSession(t, s)

	result, err := s.handleAsk(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"question":   "What is in the empty session?",
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, result)
	assert.Equal(t, answerNoMatches, parsed["answer"])
}

func TestAsk_AnswersFromContext(t *testing.T) {
	s := newTestServer(t)
	s.generator = fixedGenerator{"Indexing pipelines are covered."}
	sessionID := createSession(t, s)

	_, err := s.handleIndexDocument(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"filename":   "notes.txt",
		"content":    testDocument(),
	}))
	require.NoError(t, err)

	result, err := s.handleAsk(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"question":   "The first paragraph covers indexing pipelines in detail.",
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, result)
	assert.Equal(t, "Indexing pipelines are covered.", parsed["answer"])
	sources, ok := parsed["sources"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, sources)
}

func TestSessionStatusAndClear(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	_, err := s.handleIndexDocument(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
		"filename":   "notes.txt",
		"content":    testDocument(),
	}))
	require.NoError(t, err)

	status, err := s.handleSessionStatus(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
	}))
	require.NoError(t, err)

	parsed := resultJSON(t, status)
	assert.Equal(t, float64(3), parsed["chunks"])
	files, ok := parsed["files"].([]interface{})
	require.True(t, ok)
	require.Len(t, files, 1)

	caches, ok := parsed["caches"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), caches["cached_queries"])
	assert.Equal(t, float64(3), caches["memory_embeddings"])
	assert.Equal(t, float64(3), caches["durable_embeddings"])

	cleared, err := s.handleClearSession(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, cleared)["cleared"])

	status, err = s.handleSessionStatus(context.Background(), toolRequest(map[string]interface{}{
		"session_id": sessionID,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), resultJSON(t, status)["chunks"])
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
