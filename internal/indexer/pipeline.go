package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docrag/internal/contextutil"
	"docrag/internal/rag"
	"docrag/internal/vectorstore"
)

// Pipeline turns uploaded documents into embedded records in the vector store.
type Pipeline struct {
	extractors  Extractors
	chunker     *Chunker
	embedder    rag.Embedder
	vectorStore vectorstore.VectorStore
	chunkSize   int
	newID       func() string
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	extractors Extractors,
	chunker *Chunker,
	embedder rag.Embedder,
	vectorStore vectorstore.VectorStore,
	chunkSize int,
) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		extractors:  extractors,
		chunker:     chunker,
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkSize:   chunkSize,
		newID:       uuid.NewString,
	}
}

// Supports reports whether the pipeline can extract text from fileName.
func (p *Pipeline) Supports(fileName string) bool {
	return p.extractors.Supports(fileName)
}

// Ingest extracts, chunks, embeds and stores one document.
// Chunks that fail to embed are dropped. The report is returned on failure too,
// with State set to StateFailed.
func (p *Pipeline) Ingest(ctx context.Context, fileName string, data []byte) (*IngestReport, error) {
	ctx, logger := contextutil.With(ctx, "file_name", fileName)

	report := &IngestReport{FileName: fileName, State: StateUploaded}
	fail := func(err error) (*IngestReport, error) {
		logger.ErrorContext(ctx, "ingestion failed", "from_state", report.State, "error", err)
		report.State = StateFailed
		return report, err
	}
	advance := func(next State, args ...any) {
		logger.InfoContext(ctx, "ingestion state", append([]any{"from", report.State, "to", next}, args...)...)
		report.State = next
	}

	text, err := p.extract(fileName, data)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", rag.ErrExtraction, err))
	}
	if strings.TrimSpace(text) == "" {
		return fail(fmt.Errorf("%w: no text found in %s", rag.ErrExtraction, fileName))
	}
	advance(StateTextExtracted, "text_length", len(text))

	pieces := p.chunker.Chunks(text, p.chunkSize)
	chunks := make([]string, len(pieces))
	tokenCounts := make([]int, len(pieces))
	for i, piece := range pieces {
		chunks[i] = piece.Text
		tokenCounts[i] = piece.Tokens
	}
	report.ChunksAttempted = len(chunks)
	report.ChunkTokenStats = computeTokenStats(tokenCounts)
	advance(StateChunked, "chunks", len(chunks))

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	results := p.embedder.EmbedMany(ctx, chunks)
	records := make([]vectorstore.Record, 0, len(chunks))
	var lastErr error
	for i, res := range results {
		if res.Err != nil {
			lastErr = res.Err
			report.ChunksSkipped++
			continue
		}
		records = append(records, vectorstore.Record{
			ID:         p.newID(),
			FileName:   fileName,
			ChunkIndex: i,
			Text:       chunks[i],
			Vector:     res.Vector,
		})
	}
	report.ChunksEmbedded = len(records)
	if len(records) == 0 {
		return fail(fmt.Errorf("%w: all %d chunks failed: %w", rag.ErrEmbedding, len(chunks), lastErr))
	}
	advance(StateEmbedded, "embedded", report.ChunksEmbedded, "skipped", report.ChunksSkipped)

	if err := p.vectorStore.Upsert(ctx, records); err != nil {
		return fail(fmt.Errorf("%w: %w", rag.ErrStorage, err))
	}

	report.RecordIDs = make([]string, len(records))
	for i, rec := range records {
		report.RecordIDs[i] = rec.ID
	}
	advance(StateStored, "records", len(records))

	return report, nil
}

// extract writes data to a scratch file and runs the extractor for fileName on it.
// The scratch file is removed before returning.
func (p *Pipeline) extract(fileName string, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docrag-*"+strings.ToLower(filepath.Ext(fileName)))
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	return p.extractors.Extract(tmp.Name(), fileName)
}
