package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/catalogmatch/backend/internal/domain"
)

// HNSWConfig tunes the in-process graph
type HNSWConfig struct {
	// Dimensions fixes the vector size; zero adopts the size of the first vector added.
	Dimensions int
	M          int
	EfSearch   int
}

// HNSWIndex is an in-process cosine domain.VectorIndex over coder/hnsw.
//
// Replaced and deleted items are removed from the id mappings only; their
// nodes stay in the graph as orphans and are filtered out of results.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewHNSWIndex creates an empty index
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:  graph,
		dims:   cfg.Dimensions,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Upsert inserts or replaces the vector stored for id
func (x *HNSWIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("upsert %s: empty vector", id)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dims == 0 {
		x.dims = len(vector)
	}
	if len(vector) != x.dims {
		return fmt.Errorf("%w: upsert %s: expected %d, got %d", domain.ErrDimensionMismatch, id, x.dims, len(vector))
	}

	if existing, ok := x.idMap[id]; ok {
		delete(x.keyMap, existing)
	}

	key := x.nextKey
	x.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)
	x.graph.Add(hnsw.MakeNode(key, vec))

	x.idMap[id] = key
	x.keyMap[key] = id
	return nil
}

// Search returns up to k live ids ordered by descending cosine similarity
func (x *HNSWIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph.Len() == 0 {
		return []domain.VectorHit{}, nil
	}
	if len(vector) != x.dims {
		return nil, fmt.Errorf("%w: search: expected %d, got %d", domain.ErrDimensionMismatch, x.dims, len(vector))
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalizeInPlace(query)

	// orphans can occupy result slots
	fetch := k + x.graph.Len() - len(x.idMap)
	nodes := x.graph.Search(query, fetch)

	hits := make([]domain.VectorHit, 0, k)
	for _, node := range nodes {
		id, ok := x.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := x.graph.Distance(query, node.Value)
		hits = append(hits, domain.VectorHit{ID: id, Score: 1 - distance/2})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes id from the index; unknown ids are ignored
func (x *HNSWIndex) Delete(ctx context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if key, ok := x.idMap[id]; ok {
		delete(x.keyMap, key)
		delete(x.idMap, id)
	}
	return nil
}

// Len returns the number of live vectors
func (x *HNSWIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idMap)
}

// Contains reports whether id has a live vector
func (x *HNSWIndex) Contains(id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.idMap[id]
	return ok
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
