package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"docchat/pkg/types"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = openai.GPT4oMini
	// DefaultMaxTokens bounds answer length.
	DefaultMaxTokens = 1024
	// DefaultTemperature keeps answers grounded in the context.
	DefaultTemperature = 0.2

	// EnvAPIKey names the API key environment variable.
	EnvAPIKey = "OPENAI_API_KEY"
	// EnvBaseURL overrides the API endpoint for compatible servers.
	EnvBaseURL = "OPENAI_BASE_URL"
)

// ErrNoAPIKey is returned when the generator is constructed without
// credentials.
var ErrNoAPIKey = errors.New("generator: no API key configured")

// Generator produces an answer to a question from retrieved context.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []types.RetrievedChunk) (string, error)
}

// Config holds generator construction parameters.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIGenerator answers questions through an OpenAI-compatible chat
// completion API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// New creates an OpenAIGenerator from the config.
func New(cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// NewFromEnv creates a generator from OPENAI_API_KEY and
// OPENAI_BASE_URL.
func NewFromEnv(model string) (*OpenAIGenerator, error) {
	return New(Config{
		APIKey:  os.Getenv(EnvAPIKey),
		BaseURL: os.Getenv(EnvBaseURL),
		Model:   model,
	})
}

// Generate answers the question using the retrieved chunks as context.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, chunks []types.RetrievedChunk) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(question, chunks)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from chat model")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt assembles the question and retrieved chunks into a
// single completion prompt. Chunk content is truncated to the snippet
// limit so one oversized chunk cannot crowd out the rest.
func BuildPrompt(question string, chunks []types.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Use the following pieces of context to answer the question.\n")
	b.WriteString("If you don't know the answer, say so.\n\nContext:\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", c.Filename, types.Snippet(c.Content))
	}
	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}
