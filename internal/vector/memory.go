package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force inner product
// search. The scan is exact and O(n) per query; corpora are workspace-scoped,
// which keeps n small enough that approximate search is not needed.
//
// Reads may run concurrently; Add, Delete, and Clear take the write lock and
// never interleave with a query.
type MemoryIndex struct {
	dimensions int
	normalize  bool
	ids        []string
	items      []Item
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an index for vectors of the given dimension.
// When normalize is true, embeddings are scaled to unit L2 norm on insert and
// query vectors are scaled the same way, so the inner product is cosine
// similarity.
func NewMemoryIndex(dimensions int, normalize bool) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		normalize:  normalize,
		pos:        make(map[string]int),
	}, nil
}

// Add inserts items, replacing any existing item with the same ID.
func (m *MemoryIndex) Add(ctx context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		if len(item.Embedding) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d",
				item.ID, len(item.Embedding), m.dimensions)
		}
		emb := make([]float32, m.dimensions)
		copy(emb, item.Embedding)
		if m.normalize {
			NormalizeL2(emb)
		}
		stored := Item{ID: item.ID, Embedding: emb, Meta: item.Meta}
		if i, ok := m.pos[item.ID]; ok {
			m.items[i] = stored
			continue
		}
		m.pos[item.ID] = len(m.items)
		m.ids = append(m.ids, item.ID)
		m.items = append(m.items, stored)
	}
	return nil
}

// Query scores every item passing the filter by inner product against the
// (identically normalized) query vector and returns the topK hits in
// descending score order. An empty index or empty filter result yields an
// empty slice, never an error.
func (m *MemoryIndex) Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Hit, error) {
	if len(embedding) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(embedding), m.dimensions)
	}
	q := make([]float32, m.dimensions)
	copy(q, embedding)
	if m.normalize {
		NormalizeL2(q)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.items) == 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(m.items))
	for i := range m.items {
		item := &m.items[i]
		if len(filter) > 0 && !filter.Matches(&item.Meta) {
			continue
		}
		hits = append(hits, Hit{
			ID:    item.ID,
			Score: InnerProduct(q, item.Embedding),
			Meta:  item.Meta,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Items returns a snapshot of all indexed items in insertion order.
func (m *MemoryIndex) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Delete removes items by ID. Unknown IDs are ignored.
func (m *MemoryIndex) Delete(ids []string) {
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := m.ids[:0]
	newItems := m.items[:0]
	for i, id := range m.ids {
		if remove[id] {
			delete(m.pos, id)
			continue
		}
		m.pos[id] = len(newItems)
		newIDs = append(newIDs, id)
		newItems = append(newItems, m.items[i])
	}
	m.ids = newIDs
	m.items = newItems
}

// Clear removes all items.
func (m *MemoryIndex) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = nil
	m.items = nil
	m.pos = make(map[string]int)
}

// Size returns the number of indexed items.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Dimensions returns the vector dimension of this index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}
