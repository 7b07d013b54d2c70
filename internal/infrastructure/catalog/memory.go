package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/catalogmatch/backend/internal/domain"
)

// MemoryStore is a thread-safe in-process domain.CatalogRepository.
// Items are returned in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]domain.CatalogItem
	order []string
}

// NewMemoryStore creates a store holding the given items
func NewMemoryStore(items ...domain.CatalogItem) (*MemoryStore, error) {
	s := &MemoryStore{items: make(map[string]domain.CatalogItem)}
	if err := s.Upsert(context.Background(), items); err != nil {
		return nil, err
	}
	return s, nil
}

// FindByCategory returns items whose category equals the given one, ignoring case
func (s *MemoryStore) FindByCategory(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category = strings.TrimSpace(category)
	var out []domain.CatalogItem
	for _, id := range s.order {
		item := s.items[id]
		if strings.EqualFold(item.Category, category) {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

// FindByIDs returns the items that exist, in the order requested
func (s *MemoryStore) FindByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CatalogItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

// All returns every item
func (s *MemoryStore) All(ctx context.Context) ([]domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CatalogItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyItem(s.items[id]))
	}
	return out, nil
}

// Upsert validates and stores items. An incoming item without an embedding
// keeps the one already stored.
func (s *MemoryStore) Upsert(ctx context.Context, items []domain.CatalogItem) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		existing, ok := s.items[item.ID]
		if !ok {
			s.order = append(s.order, item.ID)
		} else if !item.HasEmbedding() {
			item.Embedding = existing.Embedding
		}
		s.items[item.ID] = copyItem(item)
	}
	return nil
}

// UpdateEmbedding replaces the stored vector of one item
func (s *MemoryStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	item.Embedding = append([]float32(nil), embedding...)
	s.items[id] = item
	return nil
}

// Delete removes an item; missing ids are ignored
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return nil
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored items
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func copyItem(item domain.CatalogItem) domain.CatalogItem {
	item.Tags = append([]string(nil), item.Tags...)
	item.PreferenceKeywords = append([]string(nil), item.PreferenceKeywords...)
	item.Options = append([]domain.ItemOption(nil), item.Options...)
	item.Embedding = append([]float32(nil), item.Embedding...)
	if item.PriceRange != nil {
		r := *item.PriceRange
		item.PriceRange = &r
	}
	return item
}
