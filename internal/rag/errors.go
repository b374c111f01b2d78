package rag

import "errors"

// Pipeline failure kinds. Callers match them with errors.Is.
var (
	// ErrExtraction means no text could be extracted from a document.
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmbedding means the embedding provider failed for the query or for every chunk.
	ErrEmbedding = errors.New("embedding failed")
	// ErrStorage means the vector store failed.
	ErrStorage = errors.New("vector store failure")
	// ErrCompletion means the completion provider failed. The generator recovers from it.
	ErrCompletion = errors.New("completion failed")
)
