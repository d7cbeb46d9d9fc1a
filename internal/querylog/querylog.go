// Package querylog appends structured per-query records to a JSONL file.
package querylog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SourceStat records one retrieved passage in a query log entry.
type SourceStat struct {
	ID           string  `json:"id"`
	Score        float64 `json:"score"`
	DocumentName string  `json:"document_name"`
	PageNumber   int     `json:"page_number"`
}

// RetrievalStats summarizes the retrieval phase of a query.
type RetrievalStats struct {
	Strategy      string       `json:"strategy"`
	NumCandidates int          `json:"num_candidates"`
	TopK          int          `json:"top_k"`
	Sources       []SourceStat `json:"sources,omitempty"`
}

// Entry is one logged query.
type Entry struct {
	Timestamp          string          `json:"timestamp"`
	RequestID          string          `json:"request_id,omitempty"`
	Query              string          `json:"query"`
	Mode               string          `json:"mode"`
	Model              string          `json:"model,omitempty"`
	LatencyMS          float64         `json:"latency_ms"`
	RetrievalLatencyMS float64         `json:"retrieval_latency_ms"`
	LLMLatencyMS       float64         `json:"llm_latency_ms,omitempty"`
	Success            bool            `json:"success"`
	Error              string          `json:"error,omitempty"`
	Retrieval          *RetrievalStats `json:"retrieval_stats,omitempty"`
	WorkspaceID        string          `json:"workspace_id,omitempty"`
}

// Logger appends entries to a JSONL file. Logging failures are reported via
// the zap logger and never surface to the query path.
type Logger struct {
	path string
	mu   sync.Mutex
	zlog *zap.Logger
}

// New creates a query logger writing to path. An empty path disables logging.
func New(path string, zlog *zap.Logger) *Logger {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	return &Logger{path: path, zlog: zlog}
}

// Append writes one entry. The timestamp is filled in when empty.
func (l *Logger) Append(entry Entry) {
	if l == nil || l.path == "" {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	line, err := json.Marshal(entry)
	if err != nil {
		l.zlog.Warn("failed to marshal query log entry", zap.Error(err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			l.zlog.Warn("failed to create query log directory", zap.Error(err))
			return
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.zlog.Warn("failed to open query log", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		l.zlog.Warn("failed to write query log entry", zap.Error(err))
	}
}
