// Package integration exercises the full index-build and ask pipeline against
// real files, sqlite, and snapshots, with deterministic offline embeddings.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/granskad/hamta/internal/chunker"
	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/engine"
	"github.com/granskad/hamta/internal/extract"
	"github.com/granskad/hamta/internal/indexer"
	"github.com/granskad/hamta/internal/indexstore"
	"github.com/granskad/hamta/internal/llm"
	"github.com/granskad/hamta/internal/querylog"
	"github.com/granskad/hamta/internal/retriever"
	"github.com/granskad/hamta/internal/storage"
	"github.com/granskad/hamta/internal/vector"
)

type stubClient struct{ reply string }

func (c *stubClient) Answer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.reply, nil
}
func (c *stubClient) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.reply, nil
}
func (c *stubClient) Extract(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.reply, nil
}

var _ llm.Client = (*stubClient)(nil)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPipeline_BuildAskReload(t *testing.T) {
	dir := t.TempDir()
	docsDir := filepath.Join(dir, "docs")
	wsDir := filepath.Join(docsDir, "handbook")
	writeDoc(t, wsDir, "vacation.txt",
		"Employees receive twenty five days of paid vacation per year. "+
			"Vacation requests go to the team lead.")
	writeDoc(t, wsDir, "security.txt",
		"Laptops must use full disk encryption. "+
			"Passwords rotate every ninety days.")

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	provider := embedding.NewMockProvider(16)
	snapshots := indexstore.New(filepath.Join(dir, "index_cache"), nil)
	ix := indexer.New(chunker.New(20, 4), extract.NewExtractor(), provider, store, snapshots, nil)

	ctx := context.Background()
	qlogPath := filepath.Join(dir, "queries.jsonl")
	qlog := querylog.New(qlogPath, nil)

	builds := 0
	build := func(ctx context.Context, workspaceID string) (*engine.Engine, error) {
		builds++
		items, _, err := ix.EnsureWorkspace(ctx, workspaceID, filepath.Join(docsDir, workspaceID))
		if err != nil {
			return nil, err
		}
		idx, err := vector.NewMemoryIndex(16, true)
		if err != nil {
			return nil, err
		}
		if err := idx.Add(ctx, items); err != nil {
			return nil, err
		}
		retr := retriever.New(idx, provider, retriever.Options{
			TopK: 4, Mode: retriever.ModeHybrid, Alpha: 0.35, Beta: 0.65,
		}, nil)
		return engine.New(workspaceID, retr, engine.Options{
			Client:   &stubClient{reply: "Twenty five days."},
			QueryLog: qlog,
		}), nil
	}
	registry := engine.NewRegistry(build, nil)

	eng, err := registry.Get(ctx, "handbook")
	if err != nil {
		t.Fatal(err)
	}
	answer, err := eng.Ask(ctx, engine.AskRequest{Question: "how many vacation days per year"})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Answer != "Twenty five days." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Passages) == 0 {
		t.Fatal("expected retrieved passages")
	}
	if !strings.Contains(answer.Passages[0].Text, "vacation") {
		t.Errorf("top passage should mention vacation, got %q", answer.Passages[0].Text)
	}
	if len(answer.Sources) == 0 || answer.Sources[0].DocumentName == "" {
		t.Errorf("expected named sources, got %+v", answer.Sources)
	}

	// Second Get reuses the cached engine.
	if _, err := registry.Get(ctx, "handbook"); err != nil {
		t.Fatal(err)
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}

	// After invalidation the engine is rebuilt, this time loading the
	// snapshot instead of re-embedding.
	registry.Invalidate("handbook")
	if _, err := registry.Get(ctx, "handbook"); err != nil {
		t.Fatal(err)
	}
	if builds != 2 {
		t.Errorf("builds = %d, want 2", builds)
	}

	// The snapshot is complete on disk and fresh for the unchanged docs.
	docs, err := indexer.ScanDocuments(wsDir)
	if err != nil {
		t.Fatal(err)
	}
	if snapshots.NeedsRebuild("handbook", docs) {
		t.Error("snapshot should be fresh after build")
	}

	// Documents and chunks were mirrored into sqlite.
	docCount, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docCount != 2 {
		t.Errorf("documents = %d, want 2", docCount)
	}
	chunkCount, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if chunkCount == 0 {
		t.Error("expected persisted chunks")
	}

	// The query was logged.
	data, err := os.ReadFile(qlogPath)
	if err != nil {
		t.Fatalf("query log not written: %v", err)
	}
	if !strings.Contains(string(data), `"query":"how many vacation days per year"`) {
		t.Errorf("query log missing entry: %s", data)
	}
}

func TestPipeline_MtimeChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	wsDir := filepath.Join(dir, "docs", "notes")
	writeDoc(t, wsDir, "note.txt", "alpha bravo charlie delta echo foxtrot")

	provider := embedding.NewMockProvider(8)
	snapshots := indexstore.New(filepath.Join(dir, "index_cache"), nil)
	ix := indexer.New(chunker.New(4, 1), extract.NewExtractor(), provider, nil, snapshots, nil)

	ctx := context.Background()
	if _, rebuilt, err := ix.EnsureWorkspace(ctx, "notes", wsDir); err != nil || !rebuilt {
		t.Fatalf("first ensure: rebuilt=%v err=%v", rebuilt, err)
	}
	if _, rebuilt, err := ix.EnsureWorkspace(ctx, "notes", wsDir); err != nil || rebuilt {
		t.Fatalf("second ensure should load snapshot: rebuilt=%v err=%v", rebuilt, err)
	}

	// Bump the mtime far enough that the unix-seconds string changes.
	path := filepath.Join(wsDir, "note.txt")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	newTime := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(path, newTime, newTime); err != nil {
		t.Fatal(err)
	}
	if _, rebuilt, err := ix.EnsureWorkspace(ctx, "notes", wsDir); err != nil || !rebuilt {
		t.Fatalf("ensure after touch should rebuild: rebuilt=%v err=%v", rebuilt, err)
	}
}
