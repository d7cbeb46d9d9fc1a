package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./.hamta/hamta.sqlite"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "./index_cache"
	}
	if cfg.Storage.DocsDir == "" {
		cfg.Storage.DocsDir = "./docs"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 8
	}
	if cfg.Retrieval.Mode == "" {
		cfg.Retrieval.Mode = "hybrid"
	}
	if cfg.Retrieval.Alpha == 0 && cfg.Retrieval.Beta == 0 {
		cfg.Retrieval.Alpha = 0.35
		cfg.Retrieval.Beta = 0.65
	}
	if cfg.Rerank.Model == "" {
		cfg.Rerank.Model = "gpt-4o-mini"
	}
	if cfg.Rerank.MixWeight == 0 {
		cfg.Rerank.MixWeight = 0.7
	}
	if cfg.Rerank.OutputTopK == 0 {
		cfg.Rerank.OutputTopK = 5
	}
	if cfg.Chunking.TargetWords == 0 {
		cfg.Chunking.TargetWords = 600
	}
	if cfg.Chunking.OverlapWords == 0 {
		cfg.Chunking.OverlapWords = 120
	}
	if cfg.LLM.Answer == "" {
		cfg.LLM.Answer = "gpt-4o"
	}
	if cfg.LLM.Summary == "" {
		cfg.LLM.Summary = "gpt-4o-mini"
	}
	if cfg.LLM.Extract == "" {
		cfg.LLM.Extract = "gpt-4o-mini"
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
}
