package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogRepository is the read side of the catalog plus the embedding write-back
type CatalogRepository interface {
	FindByCategory(ctx context.Context, category string) ([]CatalogItem, error)
	FindByIDs(ctx context.Context, ids []string) ([]CatalogItem, error)
	All(ctx context.Context) ([]CatalogItem, error)
	Upsert(ctx context.Context, items []CatalogItem) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Embedder turns text into a dense vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorHit is a single nearest-neighbour result
type VectorHit struct {
	ID    string
	Score float32
}

// VectorIndex stores item embeddings and answers top-K queries
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32) error
	Search(ctx context.Context, vector []float32, k int) ([]VectorHit, error)
	Delete(ctx context.Context, id string) error
}

// ItemClassifier decides whether a query names more than one catalog item
type ItemClassifier interface {
	Classify(ctx context.Context, query string) (*Decomposition, error)
}

// RelevanceJudge selects the candidate ids that are clearly relevant to a query
type RelevanceJudge interface {
	SelectRelevant(ctx context.Context, query string, candidates []CandidateSummary) ([]string, error)
}
