// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/granskad/hamta/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT,
		version INTEGER,
		workspace_id TEXT NOT NULL,
		mtime TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_workspace ON documents(workspace_id);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		text TEXT NOT NULL,
		page_number INTEGER,
		embedded_at TEXT,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocument inserts or replaces a document row.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *models.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, version, workspace_id, mtime, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, version=excluded.version,
		   workspace_id=excluded.workspace_id, mtime=excluded.mtime`,
		doc.ID, doc.Name, doc.Version, doc.WorkspaceID, doc.Mtime, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}
	return nil
}

// DocumentsByWorkspace returns all documents in a workspace.
func (s *SQLiteStore) DocumentsByWorkspace(ctx context.Context, workspaceID string) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, version, workspace_id, mtime, created_at
		 FROM documents WHERE workspace_id = ? ORDER BY name`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var mtime sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Version, &doc.WorkspaceID, &mtime, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Mtime = mtime.String
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and, via cascade, its chunks.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// UpsertChunks inserts or replaces chunk rows in one transaction.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, chunks []models.StoredChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, text, page_number, embedded_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   document_id=excluded.document_id, text=excluded.text,
		   page_number=excluded.page_number, embedded_at=excluded.embedded_at`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Text, chunk.PageNumber, chunk.EmbeddedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert chunk %q: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// ChunksByDocument returns all chunks of a document.
func (s *SQLiteStore) ChunksByDocument(ctx context.Context, documentID string) ([]models.StoredChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, text, page_number, embedded_at
		 FROM chunks WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ChunksByWorkspace returns all chunks belonging to a workspace's documents.
func (s *SQLiteStore) ChunksByWorkspace(ctx context.Context, workspaceID string) ([]models.StoredChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.text, c.page_number, c.embedded_at
		 FROM chunks c JOIN documents d ON c.document_id = d.id
		 WHERE d.workspace_id = ? ORDER BY c.id`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteChunksByDocument removes all chunks of a document.
func (s *SQLiteStore) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
	return err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanChunks(rows *sql.Rows) ([]models.StoredChunk, error) {
	var chunks []models.StoredChunk
	for rows.Next() {
		var chunk models.StoredChunk
		var page sql.NullInt64
		var embeddedAt sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &page, &embeddedAt); err != nil {
			return nil, err
		}
		chunk.PageNumber = int(page.Int64)
		chunk.EmbeddedAt = embeddedAt.String
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
