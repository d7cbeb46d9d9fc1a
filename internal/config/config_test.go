package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug not parsed")
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "localhost" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" || cfg.Embedding.Dimensions != 3072 {
		t.Errorf("embedding defaults = %+v", cfg.Embedding)
	}
	if cfg.Retrieval.TopK != 8 || cfg.Retrieval.Mode != "hybrid" {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.Alpha != 0.35 || cfg.Retrieval.Beta != 0.65 {
		t.Errorf("blend defaults = %v/%v", cfg.Retrieval.Alpha, cfg.Retrieval.Beta)
	}
	if cfg.Chunking.TargetWords != 600 || cfg.Chunking.OverlapWords != 120 {
		t.Errorf("chunking defaults = %+v", cfg.Chunking)
	}
	if cfg.Rerank.OutputTopK != 5 || cfg.Rerank.MixWeight != 0.7 {
		t.Errorf("rerank defaults = %+v", cfg.Rerank)
	}
}

func TestLoad_ExplicitWeightsKept(t *testing.T) {
	path := writeConfig(t, "retrieval:\n  alpha: 0.9\n  beta: 0.1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retrieval.Alpha != 0.9 || cfg.Retrieval.Beta != 0.1 {
		t.Errorf("weights = %v/%v", cfg.Retrieval.Alpha, cfg.Retrieval.Beta)
	}
}

func TestLoad_RelativePathsResolvedAgainstConfigDir(t *testing.T) {
	path := writeConfig(t, "storage:\n  index_dir: ./cache\n  docs_dir: documents\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if cfg.Storage.IndexDir != filepath.Join(dir, "cache") {
		t.Errorf("index_dir = %s", cfg.Storage.IndexDir)
	}
	if cfg.Storage.DocsDir != filepath.Join(dir, "documents") {
		t.Errorf("docs_dir = %s", cfg.Storage.DocsDir)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
	path := writeConfig(t, "server: [not a map\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate: %v", errs)
	}

	cfg.Retrieval.Mode = "psychic"
	cfg.Retrieval.TopK = 0
	cfg.Embedding.Dimensions = -1
	cfg.LLM.Answer = ""
	errs := cfg.Validate()
	if len(errs) != 4 {
		t.Errorf("got %d errors: %v", len(errs), errs)
	}
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"retrieval.mode", "retrieval.top_k", "embedding.dimensions", "llm.answer"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %v", want, errs)
		}
	}
}
