package rag

import (
	"context"

	"docrag/internal/llm"
	"docrag/internal/vectorstore"
)

// Embedder turns text into vectors.
type Embedder interface {
	// Embed returns the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedMany embeds each text independently. Results are in input order.
	EmbedMany(ctx context.Context, texts []string) []llm.EmbedResult
}

// Completer sends a system instruction and a user prompt to a chat model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Match is the outcome of a nearest-neighbor scan.
type Match struct {
	// Record is the best record. Zero value when no record was scored.
	Record vectorstore.Record
	// Score is the highest cosine similarity seen, or -1 when nothing was scored.
	Score float64
	// Found reports whether Score reached the relevance threshold.
	Found bool
}

// Answer is the result of a query.
type Answer struct {
	// Response is the generated answer or a fixed fallback message.
	Response string `json:"response"`
	// Document is the file name of the chunk used as context.
	Document string `json:"document,omitempty"`
	// Score is the similarity of the best chunk.
	Score float64 `json:"score"`
	// Matched reports whether a chunk passed the relevance threshold.
	Matched bool `json:"matched"`
}
