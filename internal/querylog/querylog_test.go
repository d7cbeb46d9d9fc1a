package querylog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppend_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "queries.jsonl")
	l := New(path, nil)

	l.Append(Entry{
		Query: "first", Mode: "answer", Success: true,
		LatencyMS: 12.5,
		Retrieval: &RetrievalStats{Strategy: "hybrid", NumCandidates: 3, TopK: 8},
	})
	l.Append(Entry{Query: "second", Mode: "summary", Success: false, Error: "boom"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Query != "first" || !entries[0].Success {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[0].Timestamp == "" || !strings.Contains(entries[0].Timestamp, "T") {
		t.Errorf("timestamp = %q", entries[0].Timestamp)
	}
	if entries[0].Retrieval == nil || entries[0].Retrieval.Strategy != "hybrid" {
		t.Errorf("retrieval stats = %+v", entries[0].Retrieval)
	}
	if entries[1].Error != "boom" || entries[1].Success {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestAppend_EmptyPathDisabled(t *testing.T) {
	l := New("", nil)
	// Must be a no-op, not a crash.
	l.Append(Entry{Query: "ignored"})
}

func TestAppend_NilLoggerSafe(t *testing.T) {
	var l *Logger
	l.Append(Entry{Query: "ignored"})
}
