package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	ollama "github.com/jason-riddle/ollama-go"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/analysis"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/config"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/console"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/embedding"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/indexer"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/inference"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/logging"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/storage"
)

const usage = `txrisk: interactive fraud-risk analysis of transactions with a local model

Usage:
  txrisk [analyze] [-rag=true] [-top-k 5] [-model llama3.2]
  txrisk index     [-dataset merged_dataset.csv] [-store ./fraud_store]
  txrisk search    -query <text> [-limit 5] [-threshold 0]

Commands:
  analyze  Build the similarity store if missing, then read transactions from stdin
  index    Build the similarity store if missing and print a summary
  search   Print the stored transactions most similar to a query

Shared flags:
  -dataset         Historical transactions CSV (or TXRISK_DATASET)
  -store           Similarity store directory (or TXRISK_STORE_DIR)
  -collection      Collection name (or TXRISK_COLLECTION)
  -embeddings-url  Embeddings API base URL (or TXRISK_EMBEDDINGS_URL)
  -embeddings-key  Embeddings API key, optional (or TXRISK_EMBEDDINGS_KEY)
  -embeddings-model Embeddings model name (or TXRISK_EMBEDDINGS_MODEL)

Logs go to stderr; see TXRISK_LOG_LEVEL and TXRISK_LOG_FORMAT.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// A second interrupt kills the process even while stdin is blocked.
		<-ctx.Done()
		stop()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "analyze"
	if len(args) > 0 && (args[0] == "" || args[0][0] != '-') {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	case "analyze", "index", "search":
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", cmd)
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return 1
	}
	slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat, stderr))

	switch cmd {
	case "analyze":
		err = runAnalyze(ctx, cfg, args, stdin, stdout, stderr)
	case "index":
		err = runIndex(ctx, cfg, args, stdout, stderr)
	case "search":
		err = runSearch(ctx, cfg, args, stdout, stderr)
	}

	writeMetrics(cfg)

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s error: %v\n", cmd, err)
		return 1
	}
	return 0
}

// storeFlags registers the flags shared by every command that touches the store.
func storeFlags(flags *flag.FlagSet, cfg *config.Config) {
	flags.StringVar(&cfg.DatasetPath, "dataset", cfg.DatasetPath, "Historical transactions CSV")
	flags.StringVar(&cfg.StoreDir, "store", cfg.StoreDir, "Similarity store directory")
	flags.StringVar(&cfg.Collection, "collection", cfg.Collection, "Collection name")
	flags.StringVar(&cfg.EmbeddingsURL, "embeddings-url", cfg.EmbeddingsURL, "Embeddings API base URL")
	flags.StringVar(&cfg.EmbeddingsKey, "embeddings-key", cfg.EmbeddingsKey, "Embeddings API key")
	flags.StringVar(&cfg.EmbeddingsModel, "embeddings-model", cfg.EmbeddingsModel, "Embeddings model")
	flags.IntVar(&cfg.EmbeddingsBatch, "embeddings-batch", cfg.EmbeddingsBatch, "Texts per embeddings request")
}

func newEmbedder(cfg *config.Config) *embedding.Service {
	client := embedding.NewClient(cfg.EmbeddingsURL, cfg.EmbeddingsKey, cfg.EmbeddingsModel)
	return embedding.NewService(client, cfg.EmbeddingsBatch)
}

func bootstrapOptions(cfg *config.Config) indexer.BootstrapOptions {
	return indexer.BootstrapOptions{
		StoreDir:    cfg.StoreDir,
		DatasetPath: cfg.DatasetPath,
		Collection:  cfg.Collection,
	}
}

func runAnalyze(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flags.SetOutput(stderr)

	storeFlags(flags, cfg)
	flags.BoolVar(&cfg.RAGEnabled, "rag", cfg.RAGEnabled, "Retrieve similar historical transactions")
	flags.IntVar(&cfg.TopK, "top-k", cfg.TopK, "Similar transactions per analysis")
	flags.StringVar(&cfg.Model, "model", cfg.Model, "Ollama model")
	flags.StringVar(&cfg.OllamaURL, "ollama-url", cfg.OllamaURL, "Ollama base URL")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := ollama.NewClient(cfg.OllamaURL, ollama.WithTimeout(cfg.InferenceTimeout))
	checkModel(ctx, client, cfg.Model)

	var retriever analysis.Retriever
	if cfg.RAGEnabled {
		r, db, err := openRetriever(ctx, cfg)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		if r != nil {
			retriever = r
		}
		writeMetrics(cfg)
	} else {
		slog.Info("Retrieval disabled")
	}

	invoker := inference.NewInvoker(client, cfg.Model)
	slog.Info("Ready", "model", invoker.Model(), "retrieval", retriever != nil)

	pipeline := &analysis.Pipeline{
		Retriever: retriever,
		Invoker:   invoker,
	}

	c := console.New(stdin, stdout, pipeline)
	c.AfterAnalysis = func() { writeMetrics(cfg) }
	return c.Run(ctx)
}

// openRetriever bootstraps the store and builds a retriever over it. Build
// failures are returned; a store that cannot be opened or was embedded with
// another model leaves the retriever nil.
func openRetriever(ctx context.Context, cfg *config.Config) (*indexer.Retriever, *storage.DB, error) {
	embedder := newEmbedder(cfg)

	db, _, err := indexer.Bootstrap(ctx, bootstrapOptions(cfg), embedder)
	var bootErr *indexer.BootstrapError
	if errors.As(err, &bootErr) && bootErr.Stage == "open" {
		slog.Warn("Similarity store unavailable, continuing without retrieval", "error", err)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	retriever, err := indexer.NewRetriever(ctx, db, embedder, cfg.Collection, cfg.TopK)
	if err != nil {
		slog.Warn("Retriever unavailable, continuing without retrieval", "error", err)
		return nil, db, nil
	}
	return retriever, db, nil
}

// checkModel warns when the model is not available locally. Startup continues
// either way; the first analysis reports the failure.
func checkModel(ctx context.Context, client *ollama.Client, model string) {
	models, err := client.ListModels(ctx)
	if err != nil {
		slog.Warn("Could not list Ollama models", "url", client.BaseURL(), "error", err)
		return
	}
	if !models.HasModel(model) {
		slog.Warn("Model not found locally; pull it with `ollama pull`", "model", model)
	}
}

func runIndex(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("index", flag.ContinueOnError)
	flags.SetOutput(stderr)
	storeFlags(flags, cfg)

	if err := flags.Parse(args); err != nil {
		return err
	}

	db, summary, err := indexer.Bootstrap(ctx, bootstrapOptions(cfg), newEmbedder(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	return writeJSON(stdout, summary)
}

func runSearch(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	flags.SetOutput(stderr)
	storeFlags(flags, cfg)

	query := flags.String("query", "", "Search query")
	limit := flags.Int("limit", cfg.TopK, "Max results")
	threshold := flags.Float64("threshold", 0, "Similarity threshold (0 = no filter)")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *query == "" {
		return fmt.Errorf("-query is required")
	}
	if *limit <= 0 {
		return fmt.Errorf("-limit must be > 0")
	}
	if *threshold < 0 || *threshold > 1 {
		return fmt.Errorf("-threshold must be between 0 and 1")
	}
	if !storage.Exists(cfg.StoreDir) {
		return fmt.Errorf("store %s does not exist; run `txrisk index` first", cfg.StoreDir)
	}

	db, err := storage.Open(ctx, cfg.StoreDir)
	if err != nil {
		return err
	}
	defer db.Close()

	embedder := newEmbedder(cfg)
	retriever, err := indexer.NewRetriever(ctx, db, embedder, cfg.Collection, *limit)
	if err != nil {
		return err
	}

	summary, err := retriever.Search(ctx, *query, *limit, *threshold)
	if err != nil {
		return err
	}

	return writeJSON(stdout, summary)
}

func writeMetrics(cfg *config.Config) {
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		slog.Warn("Failed to write metrics", "path", cfg.MetricsFile, "error", err)
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
