package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variable names. All engine settings live under the
// DOCCHAT_ prefix; provider credentials keep their conventional names.
const (
	EnvDataDir            = "DOCCHAT_DATA_DIR"
	EnvEmbeddingProvider  = "DOCCHAT_EMBEDDING_PROVIDER"
	EnvEmbeddingModel     = "DOCCHAT_EMBEDDING_MODEL"
	EnvEmbeddingDimension = "DOCCHAT_EMBEDDING_DIMENSION"
	EnvChunkSize          = "DOCCHAT_CHUNK_SIZE"
	EnvThreshold          = "DOCCHAT_SIMILARITY_THRESHOLD"
	EnvQueryCacheSize     = "DOCCHAT_QUERY_CACHE_SIZE"
	EnvQueryCacheTTL      = "DOCCHAT_QUERY_CACHE_TTL_SECONDS"
	EnvMaxConcurrent      = "DOCCHAT_MAX_CONCURRENT_FILES"
	EnvQueryTimeout       = "DOCCHAT_QUERY_TIMEOUT_SECONDS"
	EnvRerankerURL        = "DOCCHAT_RERANKER_URL"
	EnvRerankerAPIKey     = "DOCCHAT_RERANKER_API_KEY"
	EnvRerankerModel      = "DOCCHAT_RERANKER_MODEL"
	EnvGeneratorModel     = "DOCCHAT_GENERATOR_MODEL"
)

// Defaults.
const (
	DefaultDimension      = 768
	DefaultChunkSize      = 512
	DefaultThreshold      = 0.5
	DefaultQueryCacheSize = 100
	DefaultQueryCacheTTL  = 600 * time.Second
	DefaultMaxConcurrent  = 3
	DefaultQueryTimeout   = 30 * time.Second
)

// Config holds every runtime setting.
type Config struct {
	DataDir      string
	DatabasePath string

	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int

	ChunkSize           int
	SimilarityThreshold float32
	QueryCacheSize      int
	QueryCacheTTL       time.Duration
	MaxConcurrentFiles  int
	QueryTimeout        time.Duration

	RerankerURL    string
	RerankerAPIKey string
	RerankerModel  string

	GeneratorModel string
}

// Load builds a Config from the environment, falling back to defaults.
func Load() (*Config, error) {
	dataDir := os.Getenv(EnvDataDir)
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docchat")
	}

	dimension, err := intEnv(EnvEmbeddingDimension, DefaultDimension)
	if err != nil {
		return nil, err
	}
	chunkSize, err := intEnv(EnvChunkSize, DefaultChunkSize)
	if err != nil {
		return nil, err
	}
	threshold, err := floatEnv(EnvThreshold, DefaultThreshold)
	if err != nil {
		return nil, err
	}
	cacheSize, err := intEnv(EnvQueryCacheSize, DefaultQueryCacheSize)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := secondsEnv(EnvQueryCacheTTL, DefaultQueryCacheTTL)
	if err != nil {
		return nil, err
	}
	maxConcurrent, err := intEnv(EnvMaxConcurrent, DefaultMaxConcurrent)
	if err != nil {
		return nil, err
	}
	queryTimeout, err := secondsEnv(EnvQueryTimeout, DefaultQueryTimeout)
	if err != nil {
		return nil, err
	}

	return &Config{
		DataDir:             dataDir,
		DatabasePath:        filepath.Join(dataDir, "docchat.db"),
		EmbeddingProvider:   os.Getenv(EnvEmbeddingProvider),
		EmbeddingModel:      os.Getenv(EnvEmbeddingModel),
		EmbeddingDimension:  dimension,
		ChunkSize:           chunkSize,
		SimilarityThreshold: threshold,
		QueryCacheSize:      cacheSize,
		QueryCacheTTL:       cacheTTL,
		MaxConcurrentFiles:  maxConcurrent,
		QueryTimeout:        queryTimeout,
		RerankerURL:         os.Getenv(EnvRerankerURL),
		RerankerAPIKey:      os.Getenv(EnvRerankerAPIKey),
		RerankerModel:       os.Getenv(EnvRerankerModel),
		GeneratorModel:      os.Getenv(EnvGeneratorModel),
	}, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float32) (float32, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return float32(v), nil
}

func secondsEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(v) * time.Second, nil
}
