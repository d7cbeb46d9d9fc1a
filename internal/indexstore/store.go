// Package indexstore persists per-workspace index snapshots to disk so a
// restart does not re-embed the corpus.
//
// A snapshot is three co-located artifacts in one directory per workspace:
// a dense embedding matrix, the ordered chunk metadata (with an optional
// build timestamp), and a lexical-model blob. Matrix row order matches
// metadata order. A snapshot is whole-replace: rebuilds rewrite all three
// artifacts, never patch them.
package indexstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/lexical"
	"github.com/granskad/hamta/internal/models"
)

const (
	matrixFile  = "embeddings.bin"
	metaFile    = "chunks_meta.json"
	lexicalFile = "lexical.gob"
)

// Snapshot is a fully loaded per-workspace index snapshot.
type Snapshot struct {
	Vectors [][]float32
	Metas   []models.ChunkMeta
	Lexical *lexical.Model

	// BuiltAt is the index build time. Legacy is set when the metadata
	// artifact predates build timestamps; such snapshots still load.
	BuiltAt time.Time
	Legacy  bool
}

// metaPayload is the on-disk shape of the metadata artifact.
type metaPayload struct {
	BuiltAt string             `json:"built_at,omitempty"`
	Chunks  []models.ChunkMeta `json:"chunks"`
}

// Store reads and writes workspace snapshots under a base directory. The
// directory name is the only namespacing mechanism; there is no registry file.
type Store struct {
	baseDir string
	logger  *zap.Logger
}

// New creates a snapshot store rooted at baseDir.
func New(baseDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{baseDir: baseDir, logger: logger}
}

// WorkspaceDir returns the snapshot directory for a workspace.
func (s *Store) WorkspaceDir(workspace string) string {
	return filepath.Join(s.baseDir, workspace)
}

// Save writes all three snapshot artifacts for a workspace. vectors and
// metas must be parallel: row i of the matrix embeds metas[i].
func (s *Store) Save(workspace string, vectors [][]float32, metas []models.ChunkMeta, model *lexical.Model) error {
	if len(vectors) != len(metas) {
		return fmt.Errorf("save snapshot: %d vectors for %d metadata records", len(vectors), len(metas))
	}
	dir := s.WorkspaceDir(workspace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if err := writeMatrix(filepath.Join(dir, matrixFile), vectors); err != nil {
		return err
	}

	payload := metaPayload{
		BuiltAt: time.Now().UTC().Format(time.RFC3339),
		Chunks:  metas,
	}
	metaJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), metaJSON, 0644); err != nil {
		return fmt.Errorf("write chunk metadata: %w", err)
	}

	blob, err := model.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, lexicalFile), blob, 0644); err != nil {
		return fmt.Errorf("write lexical model: %w", err)
	}

	s.logger.Info("saved index snapshot",
		zap.String("workspace", workspace),
		zap.Int("chunks", len(metas)),
	)
	return nil
}

// Load reads the snapshot for a workspace. ok is false when any of the three
// artifacts is missing; a partial snapshot is never treated as valid. A
// present but unreadable artifact returns an error.
func (s *Store) Load(workspace string) (snap *Snapshot, ok bool, err error) {
	dir := s.WorkspaceDir(workspace)
	paths := []string{
		filepath.Join(dir, matrixFile),
		filepath.Join(dir, metaFile),
		filepath.Join(dir, lexicalFile),
	}
	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr != nil {
			if os.IsNotExist(statErr) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("stat snapshot artifact: %w", statErr)
		}
	}

	vectors, err := readMatrix(paths[0])
	if err != nil {
		return nil, false, err
	}

	metaJSON, err := os.ReadFile(paths[1])
	if err != nil {
		return nil, false, fmt.Errorf("read chunk metadata: %w", err)
	}
	var payload metaPayload
	legacy := false
	if err := json.Unmarshal(metaJSON, &payload); err != nil {
		// Older snapshots stored a bare array without a build timestamp.
		var chunks []models.ChunkMeta
		if arrErr := json.Unmarshal(metaJSON, &chunks); arrErr != nil {
			return nil, false, fmt.Errorf("parse chunk metadata: %w", err)
		}
		payload = metaPayload{Chunks: chunks}
	}
	var builtAt time.Time
	if payload.BuiltAt == "" {
		legacy = true
	} else if builtAt, err = time.Parse(time.RFC3339, payload.BuiltAt); err != nil {
		legacy = true
		builtAt = time.Time{}
	}
	if len(vectors) != len(payload.Chunks) {
		return nil, false, fmt.Errorf("snapshot mismatch: %d vectors for %d metadata records",
			len(vectors), len(payload.Chunks))
	}

	blob, err := os.ReadFile(paths[2])
	if err != nil {
		return nil, false, fmt.Errorf("read lexical model: %w", err)
	}
	model, err := lexical.Decode(blob)
	if err != nil {
		return nil, false, err
	}

	if legacy {
		s.logger.Warn("loaded legacy snapshot without build timestamp",
			zap.String("workspace", workspace))
	}
	s.logger.Info("loaded index snapshot",
		zap.String("workspace", workspace),
		zap.Int("chunks", len(payload.Chunks)),
	)
	return &Snapshot{
		Vectors: vectors,
		Metas:   payload.Chunks,
		Lexical: model,
		BuiltAt: builtAt,
		Legacy:  legacy,
	}, true, nil
}

// NeedsRebuild reports whether the workspace index must be rebuilt from the
// current documents: true when no valid snapshot exists, when a current
// document's path is absent from the snapshot metadata, or when a recorded
// modification time differs from the current one. Comparison is by path
// string and raw mtime value, a cheap staleness heuristic rather than a
// content hash. Documents that disappeared from disk do not trigger a
// rebuild on their own.
func (s *Store) NeedsRebuild(workspace string, current []models.DocumentRef) bool {
	snap, ok, err := s.Load(workspace)
	if err != nil {
		s.logger.Warn("unreadable snapshot, forcing rebuild",
			zap.String("workspace", workspace), zap.Error(err))
		return true
	}
	if !ok {
		return true
	}
	recorded := make(map[string]string, len(snap.Metas))
	for _, meta := range snap.Metas {
		if meta.DocumentPath != "" {
			recorded[meta.DocumentPath] = meta.DocumentMtime
		}
	}
	for _, doc := range current {
		mtime, found := recorded[doc.Path]
		if !found {
			return true
		}
		if mtime != doc.Mtime {
			return true
		}
	}
	return false
}

// Remove deletes a workspace's snapshot directory. Missing directories are
// not an error.
func (s *Store) Remove(workspace string) error {
	err := os.RemoveAll(s.WorkspaceDir(workspace))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
