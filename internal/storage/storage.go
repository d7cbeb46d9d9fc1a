// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"

	"github.com/granskad/hamta/internal/models"
)

// Store defines document and chunk persistence operations. It records what
// has been ingested per workspace; the retrieval index itself is persisted
// separately as a snapshot.
type Store interface {
	UpsertDocument(ctx context.Context, doc *models.Document) error
	DocumentsByWorkspace(ctx context.Context, workspaceID string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	UpsertChunks(ctx context.Context, chunks []models.StoredChunk) error
	ChunksByDocument(ctx context.Context, documentID string) ([]models.StoredChunk, error)
	ChunksByWorkspace(ctx context.Context, workspaceID string) ([]models.StoredChunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID string) error

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
