// Package vector provides an in-memory vector index with exact brute-force
// cosine search and equality metadata filters.
package vector

import (
	"context"

	"github.com/granskad/hamta/internal/models"
)

// Item is an indexed (id, embedding, metadata) triple. The index owns the
// embedding after Add; callers must not mutate it.
type Item struct {
	ID        string
	Embedding []float32
	Meta      models.ChunkMeta
}

// Hit is a single query result.
type Hit struct {
	ID    string
	Score float64
	Meta  models.ChunkMeta
}

// Filter is a conjunction of exact metadata-field matches. An item passes
// only if every key resolves on its metadata and equals the given value.
type Filter map[string]string

// Matches reports whether meta satisfies every filter entry.
func (f Filter) Matches(meta *models.ChunkMeta) bool {
	for key, want := range f {
		got, ok := meta.Field(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Index defines vector storage and exact similarity search.
type Index interface {
	Add(ctx context.Context, items []Item) error
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Hit, error)
	Items() []Item
	Delete(ids []string)
	Clear()
	Size() int
}
