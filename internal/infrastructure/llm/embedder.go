package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"golang.org/x/time/rate"
)

// Embedder adapts an Eino embedder to domain.Embedder
type Embedder struct {
	model   embedding.Embedder
	limiter *rate.Limiter
}

// NewEmbedder wraps an Eino embedder; a nil limiter means unlimited
func NewEmbedder(m embedding.Embedder, limiter *rate.Limiter) *Embedder {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &Embedder{model: m, limiter: limiter}
}

// Embed returns the embedding of text as float32
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	vectors, err := e.model.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embed: provider returned no vector")
	}

	out := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		out[i] = float32(v)
	}
	return out, nil
}
