// Package main is the intelhub CLI entry point.
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
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/cli"
	"github.com/MikePfunk28/intelhub/internal/config"
	"github.com/MikePfunk28/intelhub/internal/embedder"
	"github.com/MikePfunk28/intelhub/internal/extract"
	"github.com/MikePfunk28/intelhub/internal/ingest"
	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/provider"
	"github.com/MikePfunk28/intelhub/internal/search"
	"github.com/MikePfunk28/intelhub/internal/server"
	"github.com/MikePfunk28/intelhub/internal/storage"
	"github.com/MikePfunk28/intelhub/internal/vector"
	"github.com/MikePfunk28/intelhub/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	// A .env file in the working directory supplies OPENAI_API_KEY during
	// development; missing files are fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "embed":
		runEmbed()
	case "batch":
		runBatch()
	case "import":
		runImport()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("intelhub version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if path != defaultConfigPath {
			fmt.Fprintf(os.Stderr, "Config file not found: %s\n", path)
			os.Exit(1)
		}
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config, debug bool) *zap.Logger {
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// Components holds initialized services.
type Components struct {
	Storage  *storage.SQLiteStore
	Embedder provider.Embedder
	Vectors  vector.Index
	Keywords keyword.Index
	Engine   *search.Engine
	Client   *search.Client
	Service  *embedder.Service
}

func (c *Components) Close() {
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var emb provider.Embedder
	if cfg.Provider.Kind == "mock" {
		emb = provider.NewMockEmbedder(cfg.Provider.Dimensions)
	} else {
		emb = provider.NewCachingEmbedder(
			provider.NewOpenAIEmbedder(
				cfg.Provider.APIKey,
				cfg.Provider.Endpoint,
				cfg.Provider.Model,
				cfg.Provider.Dimensions,
				time.Duration(cfg.Provider.TimeoutSeconds)*time.Second,
			),
			cfg.Provider.CacheSize,
		)
	}

	vectors, err := vector.NewMemoryIndex(cfg.Provider.Dimensions)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	keywords, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	svc := embedder.NewService(store, emb, vectors, keywords, logger,
		embedder.WithPacing(
			time.Duration(cfg.Batch.ItemDelayMs)*time.Millisecond,
			time.Duration(cfg.Batch.PageDelayMs)*time.Millisecond,
		))

	n, err := svc.RebuildIndexes(context.Background())
	if err != nil {
		_ = keywords.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to rebuild indexes: %w", err)
	}
	logger.Info("indexes rebuilt from storage", zap.Int("embeddings", n))

	engine := search.NewEngine(store, emb, vectors, keywords, search.Options{
		DefaultThreshold: cfg.Search.DefaultThreshold,
		SemanticWeight:   cfg.Search.SemanticWeight,
		KeywordWeight:    cfg.Search.KeywordWeight,
		TopKCandidates:   cfg.Search.TopKCandidates,
	}, logger)

	return &Components{
		Storage:  store,
		Embedder: emb,
		Vectors:  vectors,
		Keywords: keywords,
		Engine:   engine,
		Client:   search.NewClient(engine, logger),
		Service:  svc,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	logger := newLogger(cfg, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watch *ingest.Watcher
	if cfg.Ingest.Watch {
		importer := ingest.NewImporter(components.Storage, extract.NewExtractor(), logger)
		watch = ingest.NewWatcher(importer, cfg.Ingest.DropDir, logger)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start drop directory watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Client,
		components.Service,
		components.Storage,
		components.Vectors,
		components.Keywords,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watch != nil {
		watch.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use local storage directly)")
	mode := fs.String("type", "hybrid", "search type: semantic, keyword, or hybrid")
	limit := fs.Int("limit", models.DefaultLimit, "number of results")
	threshold := fs.Float64("threshold", -1, "similarity threshold (-1 = configured default, 0 = no floor)")
	contentTypes := fs.String("content-types", "", "comma-separated content types to search")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: intelhub search [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	req := &models.SearchRequest{
		Query: query,
		Mode:  models.SearchMode(*mode),
		Limit: *limit,
	}
	if *threshold >= 0 {
		req.Threshold = threshold
	}
	if *contentTypes != "" {
		for _, ct := range strings.Split(*contentTypes, ",") {
			req.ContentTypes = append(req.ContentTypes, models.ContentType(strings.TrimSpace(ct)))
		}
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		cfg := loadConfig(*configPath)
		logger := newLogger(cfg, false)
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Client.Search(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	id := fs.String("id", "", "content id")
	contentType := fs.String("type", "knowledge_item", "content type")
	title := fs.String("title", "", "content title")
	content := fs.String("content", "", "content text (reads stdin when empty)")
	force := fs.Bool("force", false, "regenerate even when an embedding exists")
	_ = fs.Parse(os.Args[2:])

	if *id == "" {
		fmt.Println("Usage: intelhub embed -id <id> [flags]")
		os.Exit(1)
	}
	text := *content
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		text = string(data)
	}

	cfg := loadConfig(*configPath)
	logger := newLogger(cfg, false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Service.EmbedContent(context.Background(), &embedder.EmbedRequest{
		ContentID:       *id,
		ContentType:     *contentType,
		Title:           *title,
		Content:         text,
		ForceRegenerate: *force,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", result.Message, result.EmbeddingID)
}

func runBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	contentType := fs.String("type", "all", "content type to sweep, or all")
	batchSize := fs.Int("batch-size", embedder.DefaultBatchSize, "items per page")
	force := fs.Bool("force", false, "re-embed content that already has embeddings")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	logger := newLogger(cfg, false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	skip := !*force
	progress, err := components.Service.RunBatch(context.Background(), &embedder.BatchRequest{
		ContentType:  *contentType,
		BatchSize:    *batchSize,
		SkipExisting: &skip,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Processed %d of %d items (%d failed)\n",
		progress.Processed, progress.TotalItems, progress.Failed)
	for _, e := range progress.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: intelhub import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := newLogger(cfg, false)
	defer logger.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	importer := ingest.NewImporter(store, extract.NewExtractor(), logger)
	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		imported, failed, err := importer.ImportDirectory(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d file(s) from %s (%d failed)\n", imported, path, failed)
		fmt.Println("Run 'intelhub batch' to embed the imported content.")
		return
	}
	n, err := importer.ImportFile(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d item(s) from %s\n", n, path)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteStats(os.Stdout, stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`intelhub - hybrid semantic search for dashboard content

Usage:
  intelhub server [flags]           Start the HTTP server
  intelhub search [flags] <query>   Search content
  intelhub embed [flags]            Embed a single piece of content
  intelhub batch [flags]            Embed all pending content
  intelhub import [flags] <path>    Import JSON or documents into storage
  intelhub stats [flags]            Show embedding coverage
  intelhub version                  Show version
  intelhub help                     Show this help

Server Flags:
  --config string    Config file path (default: config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string         Config file path
  --server string         Server URL; empty uses local storage directly
  --type string           Search type: semantic, keyword, or hybrid (default: hybrid)
  --limit int             Number of results (default: 20)
  --threshold float       Similarity threshold; 0 disables the floor
  --content-types string  Comma-separated content types
  --output string         Output format: text or json

Examples:
  intelhub server
  intelhub search "transformer architectures"
  intelhub search --type keyword --limit 5 raft consensus
  intelhub embed -id doc-1 -type ai_content -title "Paper" -content "..."
  intelhub batch --type knowledge_item
  intelhub import ./inbox
  intelhub stats --output json

OPENAI_API_KEY must be set (directly or via a .env file) for semantic
search and embedding; keyword search works without it.`)
}
