package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"docrag/internal/blobstore"
	"docrag/internal/config"
	"docrag/internal/handlers"
	"docrag/internal/http"
	"docrag/internal/indexer"
	"docrag/internal/llm"
	"docrag/internal/rag"
	"docrag/internal/service"
	"docrag/internal/storage"
	"docrag/internal/vectorstore"
)

// General API information
//
// Document question-answering API. Uploaded PDF, DOCX, XLSX and Markdown files are
// chunked, embedded and stored; /chat answers questions from the most similar chunk.
//
// ---
// title: DocRAG API
// version: 1.0.0
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

// fallbackTokenizerModel selects cl100k_base when the embedding model name is unknown to tiktoken.
const fallbackTokenizerModel = "text-embedding-ada-002"

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// Postgres pool is shared by the pgvector store and the postgres history store.
	var pool *pgxpool.Pool
	if cfg.VectorStore == config.VectorStorePgvector || cfg.HistoryDriver == config.HistoryPostgres {
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to create postgres pool: %v", err)
		}
		closers = append(closers, pool.Close)
	}

	vectorStore, err := openVectorStore(ctx, cfg, pool, &closers)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	slog.Info("Vector store ready", "backend", cfg.VectorStore)

	historyStore, err := openHistoryStore(ctx, cfg, pool, &closers)
	if err != nil {
		log.Fatalf("Failed to initialize history store: %v", err)
	}
	slog.Info("History store ready", "driver", cfg.HistoryDriver)

	blobs, err := openBlobStore(cfg, &closers)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	slog.Info("Blob store ready", "backend", cfg.BlobStore)

	llmOpts := []llm.Option{
		llm.WithTimeout(cfg.ProviderTimeout),
		llm.WithRetries(cfg.ProviderRetries),
		llm.WithConcurrency(cfg.EmbedConcurrency),
	}
	embedder := llm.NewEmbeddingsClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions, llmOpts...)
	completer := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.CompletionModel, llmOpts...)

	// Validate embedding vector size (fail-fast)
	if !cfg.SkipEmbeddingCheck {
		vec, err := embedder.Embed(ctx, "test")
		if err != nil {
			log.Fatalf("Failed to validate embedding client: %v", err)
		}
		if len(vec) != cfg.EmbeddingDimensions {
			log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingDimensions, len(vec))
		}
		slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingDimensions)
	}

	tokenizer, err := indexer.NewTiktokenTokenizer(cfg.EmbeddingModel)
	if err != nil {
		slog.Warn("Unknown tokenizer model, using cl100k_base", "model", cfg.EmbeddingModel, "error", err)
		tokenizer, err = indexer.NewTiktokenTokenizer(fallbackTokenizerModel)
		if err != nil {
			log.Fatalf("Failed to load tokenizer: %v", err)
		}
	}

	pipeline := indexer.NewPipeline(
		indexer.DefaultExtractors(),
		indexer.NewChunker(tokenizer),
		embedder,
		vectorStore,
		cfg.ChunkSize,
	)

	retriever := rag.NewRetriever(cfg.RelevanceThreshold, cfg.RetrievalWorkers)
	ragEngine := rag.NewEngine(
		embedder,
		vectorStore,
		retriever,
		rag.NewGenerator(completer),
	)
	slog.Info("RAG engine initialized", "threshold", retriever.Threshold(), "chunk_size", cfg.ChunkSize)

	router := http.NewRouter(&http.Deps{
		ChatService:     service.NewChatService(ragEngine, historyStore),
		DocumentService: service.NewDocumentService(blobs, pipeline),
		HistoryService:  service.NewHistoryService(historyStore),
		HealthChecks: map[string]handlers.Pinger{
			"vector_store":  vectorStore,
			"history_store": historyStore,
		},
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.CORSOrigins,
	})

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr)
		slog.Debug("Provider configuration", "base_url", cfg.OpenAIBaseURL, "embedding_model", cfg.EmbeddingModel, "completion_model", cfg.CompletionModel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			slog.Error("API server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}

func openVectorStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, closers *[]func()) (vectorstore.VectorStore, error) {
	switch cfg.VectorStore {
	case config.VectorStoreQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = store.Close() })
		if err := store.EnsureCollection(ctx, cfg.EmbeddingDimensions); err != nil {
			return nil, err
		}
		return store, nil
	case config.VectorStorePgvector:
		store, err := vectorstore.NewPgvectorStore(pool, cfg.PgvectorTable)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx, cfg.EmbeddingDimensions); err != nil {
			return nil, err
		}
		return store, nil
	case config.VectorStoreMemory:
		slog.Warn("Using in-memory vector store; records are lost on restart")
		return vectorstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
}

func openHistoryStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, closers *[]func()) (storage.HistoryStore, error) {
	switch cfg.HistoryDriver {
	case config.HistorySQLite:
		db, err := storage.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = db.Close() })
		if err := storage.Migrate(db); err != nil {
			return nil, err
		}
		return storage.NewHistoryRepo(db), nil
	case config.HistoryPostgres:
		if err := storage.MigratePostgres(ctx, pool); err != nil {
			return nil, err
		}
		return storage.NewPgHistoryRepo(pool), nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.HistoryDriver)
	}
}

func openBlobStore(cfg *config.Config, closers *[]func()) (blobstore.Store, error) {
	switch cfg.BlobStore {
	case config.BlobStoreAzure:
		return blobstore.NewAzureStore(cfg.AzureBlobURL, cfg.AzureContainer, cfg.AzureBlobToken)
	case config.BlobStoreBolt:
		store, err := blobstore.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob store %q", cfg.BlobStore)
	}
}
