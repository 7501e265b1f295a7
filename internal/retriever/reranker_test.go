package retriever

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReranker_Rerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model     string   `json:"model"`
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Documents, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 1, "relevance_score": 0.95},
				{"index": 0, "relevance_score": 0.2},
			},
		})
	}))
	defer srv.Close()

	rr := NewHTTPReranker(srv.URL, "test-key", "test-model")
	scores, err := rr.Rerank(context.Background(), "query", []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.2, 0.95}, scores, "scores are index-aligned with input")
}

func TestHTTPReranker_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rr := NewHTTPReranker(srv.URL, "", "m")
	_, err := rr.Rerank(context.Background(), "q", []string{"doc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPReranker_OutOfRangeIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"index": 5, "relevance_score": 0.5}},
		})
	}))
	defer srv.Close()

	rr := NewHTTPReranker(srv.URL, "", "m")
	_, err := rr.Rerank(context.Background(), "q", []string{"doc"})
	assert.Error(t, err)
}

func TestHTTPReranker_EmptyDocuments(t *testing.T) {
	rr := NewHTTPReranker("http://unused.invalid", "", "m")
	scores, err := rr.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}
