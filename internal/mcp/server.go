package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"docchat/internal/config"
	"docchat/internal/embedder"
	"docchat/internal/engine"
	"docchat/internal/generator"
	"docchat/internal/retriever"
	"docchat/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docchat"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	engine    *engine.Engine
	store     storage.Store
	generator generator.Generator
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv(cfg.EmbeddingDimension)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var reranker retriever.Reranker
	if cfg.RerankerURL != "" {
		reranker = retriever.NewHTTPReranker(cfg.RerankerURL, cfg.RerankerAPIKey, cfg.RerankerModel)
	}

	eng, err := engine.New(engine.Config{
		Embedder:           emb,
		Store:              store,
		DataDir:            cfg.DataDir,
		Dimension:          cfg.EmbeddingDimension,
		ChunkSize:          cfg.ChunkSize,
		Threshold:          cfg.SimilarityThreshold,
		Reranker:           reranker,
		QueryCacheSize:     cfg.QueryCacheSize,
		QueryCacheTTL:      cfg.QueryCacheTTL,
		MaxConcurrentFiles: cfg.MaxConcurrentFiles,
		QueryTimeout:       cfg.QueryTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	// The answer generator is optional; without credentials the ask
	// tool reports that generation is unavailable.
	var gen generator.Generator
	if g, err := generator.NewFromEnv(cfg.GeneratorModel); err == nil {
		gen = g
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		engine:    eng,
		store:     store,
		generator: gen,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until stdin closes
// or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.engine.Close() }()
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(createSessionTool(), s.handleCreateSession)
	s.mcp.AddTool(indexDocumentTool(), s.handleIndexDocument)
	s.mcp.AddTool(queryDocumentsTool(), s.handleQueryDocuments)
	s.mcp.AddTool(askTool(), s.handleAsk)
	s.mcp.AddTool(sessionStatusTool(), s.handleSessionStatus)
	s.mcp.AddTool(clearSessionTool(), s.handleClearSession)
	return nil
}
