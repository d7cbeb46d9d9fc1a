package models

import "time"

// Document is a stored source document.
type Document struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Version     int64     `json:"version" db:"version"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Mtime       string    `json:"mtime" db:"mtime"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StoredChunk is a chunk row in the document store.
type StoredChunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Text       string `json:"text" db:"text"`
	PageNumber int    `json:"page_number" db:"page_number"`
	EmbeddedAt string `json:"embedded_at" db:"embedded_at"`
}

// DocumentRef identifies a source document on disk when checking index staleness.
// Mtime is the raw modification time as recorded at scan time; staleness
// comparison is by exact string value, not by parsing.
type DocumentRef struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Mtime string `json:"mtime"`
}
