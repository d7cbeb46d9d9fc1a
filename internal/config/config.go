// Package config provides configuration loading and structs for hamta.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	LLM       LLMConfig       `yaml:"llm"`
	QueryLog  QueryLogConfig  `yaml:"query_log"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document database, index snapshots, and
// workspace document roots. Documents for workspace W live in DocsDir/W.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexDir     string `yaml:"index_dir"`
	DocsDir      string `yaml:"docs_dir"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds hybrid retrieval settings. Alpha weights the lexical
// signal, Beta the embedding signal.
type RetrievalConfig struct {
	TopK  int     `yaml:"top_k"`
	Mode  string  `yaml:"mode"`
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// RerankConfig holds second-pass reranking settings. InputTopK of 0 reranks
// every retrieved passage.
type RerankConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Model      string  `yaml:"model"`
	MixWeight  float64 `yaml:"mix_weight"`
	InputTopK  int     `yaml:"input_top_k"`
	OutputTopK int     `yaml:"output_top_k"`
}

// ChunkingConfig holds word-window chunking settings.
type ChunkingConfig struct {
	TargetWords  int `yaml:"target_words"`
	OverlapWords int `yaml:"overlap_words"`
}

// LLMConfig selects the chat model per generation mode.
type LLMConfig struct {
	Answer  string `yaml:"answer"`
	Summary string `yaml:"summary"`
	Extract string `yaml:"extract"`
}

// QueryLogConfig holds query logging settings. An empty path disables it.
type QueryLogConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig holds document watch settings for the server.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// LoadEnv loads a .env file when present so OPENAI_API_KEY can live next to
// the config. The path can be overridden with HAMTA_ENV_PATH. A missing file
// is not an error.
func LoadEnv() {
	path := os.Getenv("HAMTA_ENV_PATH")
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.DocsDir = expandPath(cfg.Storage.DocsDir, configDir)
	if cfg.QueryLog.Path != "" {
		cfg.QueryLog.Path = expandPath(cfg.QueryLog.Path, configDir)
	}
	return &cfg, nil
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() []string {
	var errs []string
	if c.Embedding.Model == "" {
		errs = append(errs, "embedding.model: missing")
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, "embedding.dimensions: must be a positive integer")
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, "retrieval.top_k: must be a positive integer")
	}
	switch c.Retrieval.Mode {
	case "lexical", "embedding", "hybrid":
	default:
		errs = append(errs, "retrieval.mode: must be one of lexical|embedding|hybrid")
	}
	if c.Chunking.TargetWords <= 0 {
		errs = append(errs, "chunking.target_words: must be a positive integer")
	}
	if c.Chunking.OverlapWords < 0 {
		errs = append(errs, "chunking.overlap_words: must be a non-negative integer")
	}
	for _, m := range []struct{ key, val string }{
		{"llm.answer", c.LLM.Answer},
		{"llm.summary", c.LLM.Summary},
		{"llm.extract", c.LLM.Extract},
	} {
		if m.val == "" {
			errs = append(errs, m.key+": missing")
		}
	}
	return errs
}

// expandPath converts a path to absolute, resolving relative paths against
// the config file's directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(configDir, path)
}
