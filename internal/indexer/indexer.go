// Package indexer builds and loads per-workspace retrieval indexes.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/chunker"
	"github.com/granskad/hamta/internal/docid"
	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/extract"
	"github.com/granskad/hamta/internal/indexstore"
	"github.com/granskad/hamta/internal/lexical"
	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/internal/storage"
	"github.com/granskad/hamta/internal/vector"
)

// Indexer turns a directory of documents into a workspace index snapshot:
// extract, chunk, embed, persist. Rebuilds are whole-workspace; there is no
// incremental patching of an existing snapshot.
type Indexer struct {
	chunker   *chunker.Chunker
	extractor *extract.Extractor
	provider  embedding.Provider
	store     storage.Store
	snapshots *indexstore.Store
	logger    *zap.Logger
}

// New creates an indexer. store may be nil when no document database is
// configured; the snapshot is the only mandatory persistence.
func New(
	ch *chunker.Chunker,
	extractor *extract.Extractor,
	provider embedding.Provider,
	store storage.Store,
	snapshots *indexstore.Store,
	logger *zap.Logger,
) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		chunker:   ch,
		extractor: extractor,
		provider:  provider,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Snapshots exposes the snapshot store, for staleness checks at the
// composition root.
func (ix *Indexer) Snapshots() *indexstore.Store {
	return ix.snapshots
}

// ScanDocuments walks dir and returns refs for every supported document,
// with raw mtimes recorded as unix-seconds strings.
func ScanDocuments(dir string) ([]models.DocumentRef, error) {
	var docs []models.DocumentRef
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.Supported(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		docs = append(docs, models.DocumentRef{
			Path:  path,
			Name:  d.Name(),
			Mtime: strconv.FormatInt(info.ModTime().Unix(), 10),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return docs, nil
}

// BuildWorkspace rebuilds the index for a workspace from the given documents
// and saves a fresh snapshot, replacing any previous one. Documents that fail
// extraction are skipped with a warning. Returns the indexed items.
func (ix *Indexer) BuildWorkspace(ctx context.Context, workspaceID string, docs []models.DocumentRef) ([]vector.Item, error) {
	var metas []models.ChunkMeta
	var texts []string
	var indexed []models.DocumentRef

	for _, doc := range docs {
		pages, err := ix.extractor.Extract(doc.Path)
		if err != nil {
			ix.logger.Warn("skipping document, extraction failed",
				zap.String("path", doc.Path), zap.Error(err))
			continue
		}
		indexed = append(indexed, doc)
		documentID := docid.FromPath(doc.Path)
		for _, page := range pages {
			for _, chunk := range ix.chunker.Chunk(page.Text) {
				metas = append(metas, models.ChunkMeta{
					ChunkID:       fmt.Sprintf("chunk-%d", len(metas)+1),
					WorkspaceID:   workspaceID,
					DocumentID:    documentID,
					DocumentName:  doc.Name,
					DocumentPath:  doc.Path,
					DocumentMtime: doc.Mtime,
					PageNumber:    page.Number,
					Text:          chunk.Text,
				})
				texts = append(texts, chunk.Text)
			}
		}
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = ix.provider.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed workspace %q: %w", workspaceID, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed workspace %q: got %d vectors for %d chunks",
				workspaceID, len(vectors), len(texts))
		}
	}

	docTokens := make([][]string, len(texts))
	for i, text := range texts {
		docTokens[i] = lexical.Tokenize(text)
	}
	model := lexical.NewModel(docTokens)

	if err := ix.snapshots.Save(workspaceID, vectors, metas, model); err != nil {
		return nil, err
	}
	if err := ix.persistToStore(ctx, workspaceID, indexed, metas); err != nil {
		return nil, err
	}

	items := make([]vector.Item, len(metas))
	for i := range metas {
		items[i] = vector.Item{
			ID:        metas[i].ChunkID,
			Embedding: vectors[i],
			Meta:      metas[i],
		}
	}
	ix.logger.Info("rebuilt workspace index",
		zap.String("workspace", workspaceID),
		zap.Int("documents", len(indexed)),
		zap.Int("chunks", len(items)),
	)
	return items, nil
}

// persistToStore mirrors the indexed documents and chunks into the document
// database when one is configured.
func (ix *Indexer) persistToStore(ctx context.Context, workspaceID string, docs []models.DocumentRef, metas []models.ChunkMeta) error {
	if ix.store == nil {
		return nil
	}
	for _, doc := range docs {
		version, _ := strconv.ParseInt(doc.Mtime, 10, 64)
		if err := ix.store.UpsertDocument(ctx, &models.Document{
			ID:          docid.FromPath(doc.Path),
			Name:        doc.Name,
			Version:     version,
			WorkspaceID: workspaceID,
			Mtime:       doc.Mtime,
		}); err != nil {
			return err
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	chunks := make([]models.StoredChunk, len(metas))
	for i, meta := range metas {
		chunks[i] = models.StoredChunk{
			ID:         meta.ChunkID,
			DocumentID: meta.DocumentID,
			Text:       meta.Text,
			PageNumber: meta.PageNumber,
			EmbeddedAt: now,
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	return ix.store.UpsertChunks(ctx, chunks)
}

// LoadWorkspace restores index items from the workspace snapshot. ok is
// false when no complete snapshot exists.
func (ix *Indexer) LoadWorkspace(workspaceID string) ([]vector.Item, bool, error) {
	snap, ok, err := ix.snapshots.Load(workspaceID)
	if err != nil || !ok {
		return nil, ok, err
	}
	items := make([]vector.Item, len(snap.Metas))
	for i := range snap.Metas {
		items[i] = vector.Item{
			ID:        snap.Metas[i].ChunkID,
			Embedding: snap.Vectors[i],
			Meta:      snap.Metas[i],
		}
	}
	return items, true, nil
}

// EnsureWorkspace returns the workspace's index items, rebuilding from
// docsDir only when the snapshot is missing or stale. rebuilt reports
// whether a rebuild happened.
func (ix *Indexer) EnsureWorkspace(ctx context.Context, workspaceID, docsDir string) (items []vector.Item, rebuilt bool, err error) {
	docs, err := ScanDocuments(docsDir)
	if err != nil {
		return nil, false, err
	}
	if ix.snapshots.NeedsRebuild(workspaceID, docs) {
		items, err = ix.BuildWorkspace(ctx, workspaceID, docs)
		return items, true, err
	}
	items, ok, err := ix.LoadWorkspace(workspaceID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		// NeedsRebuild said fresh but the snapshot vanished in between.
		items, err = ix.BuildWorkspace(ctx, workspaceID, docs)
		return items, true, err
	}
	return items, false, nil
}
