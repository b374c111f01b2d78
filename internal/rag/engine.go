package rag

import (
	"context"
	"fmt"

	"docrag/internal/contextutil"
	"docrag/internal/vectorstore"
)

// NoMatchResponse is returned when no chunk passes the relevance threshold.
const NoMatchResponse = "I couldn't find relevant information."

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question from the single most similar stored chunk.
	Ask(ctx context.Context, query string) (Answer, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	retriever   *Retriever
	generator   *Generator
}

// NewEngine creates a new RAG engine.
func NewEngine(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	retriever *Retriever,
	generator *Generator,
) Engine {
	return &ragEngine{
		embedder:    embedder,
		vectorStore: vectorStore,
		retriever:   retriever,
		generator:   generator,
	}
}

// Ask embeds the query, scans the store, and generates an answer from the best chunk.
func (e *ragEngine) Ask(ctx context.Context, query string) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "RAG query started", "query_length", len(query))

	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return Answer{}, fmt.Errorf("%w: query: %w", ErrEmbedding, err)
	}

	records, err := e.vectorStore.ScanAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to scan vector store", "error", err)
		return Answer{}, fmt.Errorf("%w: scan: %w", ErrStorage, err)
	}

	match := e.retriever.FindBestMatch(ctx, queryVector, records)
	if !match.Found {
		logger.InfoContext(ctx, "no relevant chunk", "records", len(records), "best_score", match.Score)
		return Answer{Response: NoMatchResponse, Score: match.Score}, nil
	}

	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	response := e.generator.Generate(ctx, match.Record.Text, query)

	logger.InfoContext(ctx, "RAG query completed",
		"document", match.Record.FileName,
		"chunk_index", match.Record.ChunkIndex,
		"score", match.Score,
	)

	return Answer{
		Response: response,
		Document: match.Record.FileName,
		Score:    match.Score,
		Matched:  true,
	}, nil
}
