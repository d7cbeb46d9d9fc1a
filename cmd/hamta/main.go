// Package main is the hamta CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/granskad/hamta/internal/chunker"
	"github.com/granskad/hamta/internal/cli"
	"github.com/granskad/hamta/internal/config"
	"github.com/granskad/hamta/internal/embedding"
	"github.com/granskad/hamta/internal/engine"
	"github.com/granskad/hamta/internal/extract"
	"github.com/granskad/hamta/internal/indexer"
	"github.com/granskad/hamta/internal/indexstore"
	"github.com/granskad/hamta/internal/llm"
	"github.com/granskad/hamta/internal/models"
	"github.com/granskad/hamta/internal/querylog"
	"github.com/granskad/hamta/internal/rerank"
	"github.com/granskad/hamta/internal/retriever"
	"github.com/granskad/hamta/internal/server"
	"github.com/granskad/hamta/internal/storage"
	"github.com/granskad/hamta/internal/vector"
	"github.com/granskad/hamta/internal/watcher"
	"github.com/granskad/hamta/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hamta/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "hamta server" from the project dir picks up the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	config.LoadEnv()
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "check":
		runCheck()
	case "version", "--version", "-v":
		fmt.Printf("hamta version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchSvc := watcher.New(
			cfg.Storage.DocsDir,
			components.Registry.Invalidate,
			logger,
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(components.Registry, components.Indexer, components.Store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	workspace := fs.String("workspace", "", "workspace to query (required)")
	mode := fs.String("mode", "answer", "generation mode: answer, summary, or extract")
	docs := fs.String("docs", "", "comma-separated document names to restrict retrieval to")
	verbose := fs.Bool("verbose", false, "print per-passage score breakdown")
	outputFormat := fs.String("output", "text", "output format: text or json")
	serverURL := fs.String("server", "", "server URL (empty = run retrieval locally)")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		printAskUsage(fs)
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" || *workspace == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var documentIDs []string
	if *docs != "" {
		for _, d := range strings.Split(*docs, ",") {
			if d = strings.TrimSpace(d); d != "" {
				documentIDs = append(documentIDs, d)
			}
		}
	}

	if *serverURL != "" {
		answer, err := askViaHTTP(*serverURL, question, *workspace, documentIDs, *mode, *verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, answer, format, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	eng, err := components.Registry.Get(ctx, *workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load workspace %q: %v\n", *workspace, err)
		os.Exit(1)
	}
	answer, err := eng.Ask(ctx, engine.AskRequest{
		Question:    question,
		DocumentIDs: documentIDs,
		Mode:        *mode,
		Verbose:     *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: hamta ask -workspace <id> [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  hamta ask -workspace handbook what is the vacation policy
  hamta ask -workspace handbook -mode summary "security guidelines"
  hamta ask -workspace handbook -docs "handbook.pdf" -verbose onboarding steps
  hamta ask -workspace handbook -server http://localhost:8080 onboarding steps
`)
}

func askViaHTTP(serverURL, question, workspace string, documentIDs []string, mode string, verbose bool) (*models.Answer, error) {
	body, err := json.Marshal(map[string]interface{}{
		"question":     question,
		"workspace":    workspace,
		"document_ids": documentIDs,
		"mode":         mode,
		"verbose":      verbose,
	})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Answer  string          `json:"answer"`
		Mode    string          `json:"mode"`
		Sources []models.Source `json:"sources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &models.Answer{Answer: out.Answer, Mode: out.Mode, Sources: out.Sources}, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: hamta index [flags] <workspace>")
		os.Exit(1)
	}
	workspace := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	docsDir := filepath.Join(cfg.Storage.DocsDir, workspace)
	docs, err := indexer.ScanDocuments(docsDir)
	if err != nil {
		fmt.Printf("Failed to scan %s: %v\n", docsDir, err)
		os.Exit(1)
	}
	items, err := components.Indexer.BuildWorkspace(ctx, workspace, docs)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed workspace %s: %d document(s), %d chunk(s)\n", workspace, len(docs), len(items))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
	case "text":
		for _, key := range []string{"documents", "chunks", "workspaces_loaded", "disk_usage_bytes"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-20s %v\n", key+":", v)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("config: %s\n", resolvedPath)
	errs := cfg.Validate()
	if os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Println("warning: OPENAI_API_KEY is not set; embeddings and answers will use offline fallbacks")
	}
	if len(errs) == 0 {
		fmt.Println("config ok")
		return
	}
	for _, e := range errs {
		fmt.Printf("error: %s\n", e)
	}
	os.Exit(1)
}

// Components holds initialized services.
type Components struct {
	Store    storage.Store
	Provider embedding.Provider
	Indexer  *indexer.Indexer
	Registry *engine.Registry
	QueryLog *querylog.Logger
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var store storage.Store
	if cfg.Storage.DatabasePath != "" {
		s, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		store = s
	}

	var provider embedding.Provider
	openaiProvider, err := embedding.NewOpenAIProvider(
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.BatchSize,
	)
	if err != nil {
		logger.Warn("embedding provider unavailable, using deterministic fallback", zap.Error(err))
		provider = embedding.NewMockProvider(cfg.Embedding.Dimensions)
	} else {
		provider = openaiProvider
	}
	provider = embedding.NewCachedProvider(provider, cfg.Embedding.CacheSize)

	snapshots := indexstore.New(cfg.Storage.IndexDir, logger)
	ch := chunker.New(cfg.Chunking.TargetWords, cfg.Chunking.OverlapWords)
	ix := indexer.New(ch, extract.NewExtractor(), provider, store, snapshots, logger)

	qlog := querylog.New(cfg.QueryLog.Path, logger)

	var client llm.Client
	openaiClient, err := llm.NewOpenAIClient(llm.Models{
		Answer:  cfg.LLM.Answer,
		Summary: cfg.LLM.Summary,
		Extract: cfg.LLM.Extract,
	})
	if err != nil {
		logger.Warn("text-generation client unavailable, retrieval-only mode", zap.Error(err))
	} else {
		client = openaiClient
	}

	var reranker *rerank.Reranker
	if cfg.Rerank.Enabled {
		oracle, err := llm.NewChatOracle(cfg.Rerank.Model, logger)
		if err != nil {
			logger.Warn("rerank oracle unavailable, reranking disabled", zap.Error(err))
		} else {
			reranker = rerank.New(oracle, cfg.Rerank.MixWeight, logger)
		}
	}

	build := func(ctx context.Context, workspaceID string) (*engine.Engine, error) {
		docsDir := filepath.Join(cfg.Storage.DocsDir, workspaceID)
		items, rebuilt, err := ix.EnsureWorkspace(ctx, workspaceID, docsDir)
		if err != nil {
			return nil, err
		}
		dims := cfg.Embedding.Dimensions
		if len(items) > 0 {
			// A snapshot built under an older dimension setting wins.
			dims = len(items[0].Embedding)
		}
		index, err := vector.NewMemoryIndex(dims, true)
		if err != nil {
			return nil, err
		}
		if err := index.Add(ctx, items); err != nil {
			return nil, err
		}
		logger.Info("workspace index ready",
			zap.String("workspace", workspaceID),
			zap.Int("chunks", len(items)),
			zap.Bool("rebuilt", rebuilt),
		)
		retr := retriever.New(index, provider, retriever.Options{
			TopK:  cfg.Retrieval.TopK,
			Mode:  retriever.Mode(cfg.Retrieval.Mode),
			Alpha: cfg.Retrieval.Alpha,
			Beta:  cfg.Retrieval.Beta,
		}, logger)
		return engine.New(workspaceID, retr, engine.Options{
			Reranker:         reranker,
			RerankInputTopK:  cfg.Rerank.InputTopK,
			RerankOutputTopK: cfg.Rerank.OutputTopK,
			Client:           client,
			LLMModels: llm.Models{
				Answer:  cfg.LLM.Answer,
				Summary: cfg.LLM.Summary,
				Extract: cfg.LLM.Extract,
			},
			QueryLog: qlog,
			Logger:   logger,
		}), nil
	}

	return &Components{
		Store:    store,
		Provider: provider,
		Indexer:  ix,
		Registry: engine.NewRegistry(build, logger),
		QueryLog: qlog,
	}, nil
}

func printUsage() {
	fmt.Println(`hamta - hybrid retrieval Q&A over local documents

Usage:
  hamta server [flags]                      Start the HTTP server
  hamta ask -workspace <id> [flags] <question>
                                            Ask a question against a workspace
  hamta index [flags] <workspace>           Rebuild a workspace index
  hamta status [flags]                      Show server status
  hamta check [flags]                       Validate the configuration
  hamta version                             Show version
  hamta help                                Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/hamta/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string     Config file path
  --workspace string  Workspace to query (required)
  --mode string       Generation mode: answer, summary, or extract (default: answer)
  --docs string       Comma-separated document names to restrict retrieval to
  --verbose           Print per-passage score breakdown
  --output string     Output format: text or json (default: text)
  --server string     Server URL; empty runs retrieval locally

Examples:
  hamta server
  hamta ask -workspace handbook what is the vacation policy
  hamta ask -workspace handbook -mode summary -output json "security guidelines"
  hamta index handbook
  hamta status --output json
  hamta check`)
}
