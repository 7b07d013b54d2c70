package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/catalogmatch/backend/internal/domain"
)

const defaultEmbeddingCacheSize = 1000

// CachedEmbedder puts a process-local LRU (L1) and an optional shared cache
// (L2) in front of an embedder. Keys are derived from text and model name so
// switching models never serves stale vectors.
type CachedEmbedder struct {
	inner  domain.Embedder
	model  string
	l1     *lru.Cache[string, []float32]
	l2     domain.CacheRepository
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedEmbedder creates a cached embedder. l2 may be nil.
func NewCachedEmbedder(inner domain.Embedder, modelName string, size int, l2 domain.CacheRepository, ttl time.Duration, logger zerolog.Logger) (*CachedEmbedder, error) {
	if size <= 0 {
		size = defaultEmbeddingCacheSize
	}
	l1, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{
		inner:  inner,
		model:  modelName,
		l1:     l1,
		l2:     l2,
		ttl:    ttl,
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}, nil
}

// Embed returns a cached vector or computes and caches a new one
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.l1.Get(key); ok {
		return copyVector(vec), nil
	}

	if c.l2 != nil {
		if vec, ok := c.fromL2(ctx, key); ok {
			c.l1.Add(key, vec)
			return copyVector(vec), nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.l1.Add(key, copyVector(vec))
	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, vec, c.ttl); err != nil {
			c.logger.Warn().Err(err).Msg("failed to store embedding in shared cache")
		}
	}
	return vec, nil
}

// Len returns the number of vectors held in the L1 cache
func (c *CachedEmbedder) Len() int {
	return c.l1.Len()
}

func (c *CachedEmbedder) fromL2(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.l2.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("shared embedding cache read failed")
		}
		return nil, false
	}

	vec, ok := toVector(raw)
	if !ok {
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cached embedding")
		_ = c.l2.Delete(ctx, key)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text + "\x00" + c.model))
	return "embedding:" + hex.EncodeToString(h[:])
}

// toVector converts a cached value back to a vector. JSON-backed caches return
// numbers as float64 inside a generic slice.
func toVector(raw interface{}) ([]float32, bool) {
	switch v := raw.(type) {
	case []float32:
		return copyVector(v), len(v) > 0
	case []interface{}:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]float32, len(v))
		for i, x := range v {
			f, ok := x.(float64)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	default:
		return nil, false
	}
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
