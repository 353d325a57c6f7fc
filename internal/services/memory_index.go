package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryCollection struct {
	dimension int
	points    map[uint64]VectorPoint
}

type memoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryIndex returns a process-local VectorIndex using exact cosine search.
func NewMemoryIndex() VectorIndex {
	return &memoryIndex{collections: make(map[string]*memoryCollection)}
}

// CreateOrReplace implements VectorIndex.
func (m *memoryIndex) CreateOrReplace(_ context.Context, name string, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[name] = &memoryCollection{
		dimension: dimension,
		points:    make(map[uint64]VectorPoint),
	}
	return nil
}

// Upsert implements VectorIndex.
func (m *memoryIndex) Upsert(_ context.Context, name string, points []VectorPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}

	for _, p := range points {
		if len(p.Vector) != col.dimension {
			return fmt.Errorf("point %d has dimension %d, collection expects %d", p.ID, len(p.Vector), col.dimension)
		}
		col.points[p.ID] = p
	}
	return nil
}

// Search implements VectorIndex.
func (m *memoryIndex) Search(_ context.Context, name string, vector []float32, limit int) ([]VectorHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}

	type scored struct {
		point VectorPoint
		score float64
	}

	candidates := make([]scored, 0, len(col.points))
	for _, p := range col.points {
		sim, err := cosine(vector, p.Vector)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, scored{point: p, score: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].point.ID < candidates[j].point.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	hits := make([]VectorHit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, VectorHit{Chunk: c.point.Chunk, Score: float32(c.score)})
	}
	return hits, nil
}

// Count implements VectorIndex.
func (m *memoryIndex) Count(_ context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %s not found", name)
	}
	return len(col.points), nil
}

// Drop implements VectorIndex.
func (m *memoryIndex) Drop(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, name)
	return nil
}
