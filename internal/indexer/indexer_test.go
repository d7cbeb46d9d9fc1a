package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/granskad/hamta/internal/chunker"
	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/extract"
	"github.com/granskad/hamta/internal/indexstore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestIndexer(t *testing.T, dims int) *Indexer {
	t.Helper()
	snapshots := indexstore.New(filepath.Join(t.TempDir(), "cache"), nil)
	return New(chunker.New(5, 1), extract.NewExtractor(), embedding.NewMockProvider(dims), nil, snapshots, nil)
}

func TestScanDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "beta")
	writeFile(t, filepath.Join(dir, "skip.png"), "binary")

	docs, err := ScanDocuments(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs: %+v", len(docs), docs)
	}
	for _, d := range docs {
		if d.Mtime == "" {
			t.Errorf("doc %s missing mtime", d.Path)
		}
		if d.Name == "" {
			t.Errorf("doc %s missing name", d.Path)
		}
	}
}

func TestBuildWorkspace_AssignsSequentialChunkIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "one two three four five six seven eight nine ten")
	writeFile(t, filepath.Join(dir, "b.txt"), "eleven twelve thirteen")

	ix := newTestIndexer(t, 8)
	docs, err := ScanDocuments(dir)
	if err != nil {
		t.Fatal(err)
	}
	items, err := ix.BuildWorkspace(context.Background(), "ws", docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) < 3 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].ID != "chunk-1" || items[1].ID != "chunk-2" {
		t.Errorf("ids = %s, %s", items[0].ID, items[1].ID)
	}
	for i, item := range items {
		if item.Meta.WorkspaceID != "ws" {
			t.Errorf("item %d workspace = %q", i, item.Meta.WorkspaceID)
		}
		if item.Meta.DocumentID == "" || item.Meta.DocumentPath == "" {
			t.Errorf("item %d missing document identity: %+v", i, item.Meta)
		}
		if len(item.Embedding) != 8 {
			t.Errorf("item %d dims = %d", i, len(item.Embedding))
		}
	}
}

func TestBuildWorkspace_SkipsFailingDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.txt"), "usable words here")
	// A .docx that is not a zip fails extraction and is skipped.
	writeFile(t, filepath.Join(dir, "broken.docx"), "not a zip archive")

	ix := newTestIndexer(t, 8)
	docs, err := ScanDocuments(dir)
	if err != nil {
		t.Fatal(err)
	}
	items, err := ix.BuildWorkspace(context.Background(), "ws", docs)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range items {
		if item.Meta.DocumentName == "broken.docx" {
			t.Error("broken document should be skipped")
		}
	}
	if len(items) == 0 {
		t.Error("good document should still index")
	}
}

func TestLoadWorkspace_MissingSnapshot(t *testing.T) {
	ix := newTestIndexer(t, 8)
	items, ok, err := ix.LoadWorkspace("nope")
	if err != nil || ok || items != nil {
		t.Errorf("items=%v ok=%v err=%v", items, ok, err)
	}
}

func TestEnsureWorkspace_BuildThenLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "words to index and load again")

	ix := newTestIndexer(t, 8)
	ctx := context.Background()

	first, rebuilt, err := ix.EnsureWorkspace(ctx, "ws", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !rebuilt {
		t.Error("first ensure must build")
	}
	second, rebuilt, err := ix.EnsureWorkspace(ctx, "ws", dir)
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt {
		t.Error("second ensure must load the snapshot")
	}
	if len(first) != len(second) {
		t.Fatalf("item count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Meta.Text != second[i].Meta.Text {
			t.Errorf("item %d differs after reload", i)
		}
		for j := range first[i].Embedding {
			if first[i].Embedding[j] != second[i].Embedding[j] {
				t.Fatalf("embedding %d changed after reload", i)
			}
		}
	}
}

func TestBuildWorkspace_EmptyDirectory(t *testing.T) {
	ix := newTestIndexer(t, 8)
	items, err := ix.BuildWorkspace(context.Background(), "ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items", len(items))
	}
	// The empty snapshot still persists and loads.
	loaded, ok, err := ix.LoadWorkspace("ws")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d items", len(loaded))
	}
}
