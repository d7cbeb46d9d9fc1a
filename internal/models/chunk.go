// Package models defines core data structures for chunks, documents, and retrieval results.
package models

import "strconv"

// Chunk is one overlapping word window produced by the chunker.
// Index is 1-based and positional within a single document; a chunk is only
// globally identifiable once paired with a document ID.
type Chunk struct {
	Index   int    `json:"chunk_index"`
	IsFirst bool   `json:"is_first"`
	IsLast  bool   `json:"is_last"`
	Text    string `json:"text"`
}

// ChunkMeta is the metadata record stored alongside each indexed chunk.
// Required fields are explicit; Extra carries caller-supplied annotations.
type ChunkMeta struct {
	ChunkID       string            `json:"chunk_id"`
	WorkspaceID   string            `json:"workspace_id"`
	DocumentID    string            `json:"document_id"`
	DocumentName  string            `json:"document_name"`
	DocumentPath  string            `json:"document_path"`
	DocumentMtime string            `json:"document_mtime"`
	PageNumber    int               `json:"page_number"`
	Text          string            `json:"text"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Field returns the named metadata field as a string for equality filtering.
// Known fields are resolved from the struct; anything else falls through to Extra.
func (m *ChunkMeta) Field(name string) (string, bool) {
	switch name {
	case "chunk_id":
		return m.ChunkID, true
	case "workspace_id":
		return m.WorkspaceID, true
	case "document_id":
		return m.DocumentID, true
	case "document_name":
		return m.DocumentName, true
	case "document_path":
		return m.DocumentPath, true
	case "document_mtime":
		return m.DocumentMtime, true
	case "page_number":
		return strconv.Itoa(m.PageNumber), true
	case "text":
		return m.Text, true
	}
	v, ok := m.Extra[name]
	return v, ok
}
