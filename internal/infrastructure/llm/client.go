// Package llm adapts CloudWeGo Eino chat and embedding models to the
// catalog matching provider interfaces.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// Supported providers
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

const (
	DefaultOllamaURL            = "http://localhost:11434"
	DefaultOpenAIChatModel      = "gpt-4o-mini"
	DefaultOllamaChatModel      = "llama3.1"
	DefaultAnthropicChatModel   = "claude-3-5-haiku-latest"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultOllamaEmbeddingModel = "nomic-embed-text"

	anthropicMaxTokens = 1024
)

// ErrProviderDisabled is returned when the configured provider is "none"
var ErrProviderDisabled = errors.New("language model provider disabled")

// Config selects and configures the chat and embedding providers.
// The embedding key and URL fall back to APIKey and BaseURL only when both
// sides use the same provider.
type Config struct {
	Provider          string
	Model             string
	EmbeddingProvider string
	EmbeddingModel    string
	APIKey            string
	BaseURL           string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string
	// RequestsPerSecond caps outbound provider calls; zero means unlimited.
	RequestsPerSecond float64
}

// NewLimiter builds the limiter shared by every outbound provider call
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// NewChatModel creates an Eino chat model for the configured provider
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, ErrProviderDisabled

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   orDefault(cfg.Model, DefaultOpenAIChatModel),
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})

	case ProviderOllama:
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: orDefault(cfg.BaseURL, DefaultOllamaURL),
			Model:   orDefault(cfg.Model, DefaultOllamaChatModel),
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key is required")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     orDefault(cfg.Model, DefaultAnthropicChatModel),
			MaxTokens: anthropicMaxTokens,
		})

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: openai, ollama, anthropic, none)", cfg.Provider)
	}
}

// EmbeddingEndpoint is the resolved provider, key and base URL of the embedder
type EmbeddingEndpoint struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// ResolveEmbedding applies the fallbacks: the provider falls back to the chat
// provider, and the key and URL to the chat ones when the providers match.
func ResolveEmbedding(cfg Config) EmbeddingEndpoint {
	ep := EmbeddingEndpoint{
		Provider: strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider)),
		APIKey:   cfg.EmbeddingAPIKey,
		BaseURL:  cfg.EmbeddingBaseURL,
	}
	chat := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if ep.Provider == "" {
		ep.Provider = chat
	}
	if ep.Provider == chat {
		if ep.APIKey == "" {
			ep.APIKey = cfg.APIKey
		}
		if ep.BaseURL == "" {
			ep.BaseURL = cfg.BaseURL
		}
	}
	return ep
}

// NewEmbeddingModel creates an Eino embedder for the resolved embedding endpoint
func NewEmbeddingModel(ctx context.Context, cfg Config) (embedding.Embedder, error) {
	ep := ResolveEmbedding(cfg)

	switch ep.Provider {
	case "", ProviderNone:
		return nil, ErrProviderDisabled

	case ProviderOpenAI:
		if ep.APIKey == "" {
			return nil, fmt.Errorf("openai embedding api key is required")
		}
		return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			Model:   orDefault(cfg.EmbeddingModel, DefaultOpenAIEmbeddingModel),
			APIKey:  ep.APIKey,
			BaseURL: ep.BaseURL,
		})

	case ProviderOllama:
		return ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
			BaseURL: orDefault(ep.BaseURL, DefaultOllamaURL),
			Model:   orDefault(cfg.EmbeddingModel, DefaultOllamaEmbeddingModel),
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: openai, ollama, none)", ep.Provider)
	}
}

// EmbeddingModelName returns the model name the embedder is built with
func EmbeddingModelName(cfg Config) string {
	if ResolveEmbedding(cfg).Provider == ProviderOllama {
		return orDefault(cfg.EmbeddingModel, DefaultOllamaEmbeddingModel)
	}
	return orDefault(cfg.EmbeddingModel, DefaultOpenAIEmbeddingModel)
}

// ChatClient sends single-prompt requests through a rate-limited chat model
type ChatClient struct {
	model   model.BaseChatModel
	limiter *rate.Limiter
}

// NewChatClient wraps a chat model; a nil limiter means unlimited
func NewChatClient(m model.BaseChatModel, limiter *rate.Limiter) *ChatClient {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &ChatClient{model: m, limiter: limiter}
}

// Complete sends a system and a user prompt and returns the answer text
func (c *ChatClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}
	resp, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp == nil {
		return "", errors.New("llm generate: empty response")
	}
	return resp.Content, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
