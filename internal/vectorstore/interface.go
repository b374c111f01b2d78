package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks docrag/internal/vectorstore VectorStore

import "context"

// Record is one embedded chunk of a document.
type Record struct {
	ID         string
	FileName   string
	ChunkIndex int
	Text       string
	Vector     []float32
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert stores records. Records with an existing ID replace the stored one.
	Upsert(ctx context.Context, records []Record) error

	// ScanAll returns every stored record in the store's enumeration order.
	ScanAll(ctx context.Context) ([]Record, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
