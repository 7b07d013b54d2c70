package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/catalogmatch/backend/internal/domain"
)

var testLogger = zerolog.Nop()

// MockCatalogRepository is a mock implementation of domain.CatalogRepository
type MockCatalogRepository struct {
	mu         sync.Mutex
	items      []domain.CatalogItem
	readError  error
	writeError error
	embedded   map[string][]float32
}

func NewMockCatalogRepository(items ...domain.CatalogItem) *MockCatalogRepository {
	return &MockCatalogRepository{
		items:    items,
		embedded: make(map[string][]float32),
	}
}

func (m *MockCatalogRepository) FindByCategory(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readError != nil {
		return nil, m.readError
	}
	var out []domain.CatalogItem
	for _, item := range m.items {
		if strings.EqualFold(item.Category, category) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockCatalogRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readError != nil {
		return nil, m.readError
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.CatalogItem
	for _, item := range m.items {
		if want[item.ID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockCatalogRepository) All(ctx context.Context) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readError != nil {
		return nil, m.readError
	}
	return append([]domain.CatalogItem(nil), m.items...), nil
}

func (m *MockCatalogRepository) Upsert(ctx context.Context, items []domain.CatalogItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeError != nil {
		return m.writeError
	}
	m.items = append(m.items, items...)
	return nil
}

func (m *MockCatalogRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeError != nil {
		return m.writeError
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Embedding = embedding
			m.embedded[id] = embedding
			return nil
		}
	}
	return domain.ErrItemNotFound
}

// MockEmbedder returns a fixed vector, or a per-text vector when configured
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	failFor map[string]bool
	delay   time.Duration
	calls   []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{vectors: make(map[string][]float32), failFor: make(map[string]bool)}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.failFor[text] {
		return nil, errors.New("embedding provider rejected input")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

// MockVectorIndex answers searches from a per-query scripted hit list keyed by
// the first vector component.
type MockVectorIndex struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	hits      map[float32][]domain.VectorHit
	searchErr error
	upsertErr error
}

func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		vectors: make(map[string][]float32),
		hits:    make(map[float32][]domain.VectorHit),
	}
}

func (m *MockVectorIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.vectors[id] = vector
	return nil
}

func (m *MockVectorIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	hits := m.hits[vector[0]]
	if hits == nil {
		for id := range m.vectors {
			hits = append(hits, domain.VectorHit{ID: id, Score: 1})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, id)
	return nil
}

// MockClassifier is a mock implementation of domain.ItemClassifier
type MockClassifier struct {
	answer *domain.Decomposition
	err    error
	delay  time.Duration
}

func (m *MockClassifier) Classify(ctx context.Context, query string) (*domain.Decomposition, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.answer, m.err
}

// MockJudge is a mock implementation of domain.RelevanceJudge
type MockJudge struct {
	mu       sync.Mutex
	selectFn func(query string, candidates []domain.CandidateSummary) ([]string, error)
	received map[string][]domain.CandidateSummary
}

func (m *MockJudge) SelectRelevant(ctx context.Context, query string, candidates []domain.CandidateSummary) ([]string, error) {
	m.mu.Lock()
	if m.received == nil {
		m.received = make(map[string][]domain.CandidateSummary)
	}
	m.received[query] = candidates
	m.mu.Unlock()
	return m.selectFn(query, candidates)
}

func budget(v float64) *float64 { return &v }

func rangeItem(id, category string, min, max float64) domain.CatalogItem {
	return domain.CatalogItem{
		ID:         id,
		Title:      id,
		Category:   category,
		PriceRange: &domain.PriceRange{Min: min, Max: max},
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func pricedItem(id string, price float64) domain.CatalogItem {
	return domain.CatalogItem{
		ID:        id,
		Title:     id,
		Category:  "flooring",
		Price:     price,
		Embedding: []float32{1, 0, 0},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
