package rag

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"docrag/internal/contextutil"
	"docrag/internal/vectorstore"
)

const (
	// DefaultThreshold is the minimum similarity for a chunk to be used as context.
	DefaultThreshold = 0.4

	// Below this many records scoring runs on the calling goroutine.
	parallelScoreMin = 1024
)

// Retriever finds the single most similar record by exhaustive cosine scan.
type Retriever struct {
	threshold float64
	workers   int
}

// NewRetriever creates a retriever. workers bounds parallel scoring; values below 2 score sequentially.
func NewRetriever(threshold float64, workers int) *Retriever {
	return &Retriever{threshold: threshold, workers: workers}
}

// Threshold returns the configured relevance threshold.
func (r *Retriever) Threshold() float64 {
	return r.threshold
}

// CosineSimilarity returns dot(a,b)/(|a||b|). A zero-norm vector scores 0.
// Callers must pass vectors of equal length.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindBestMatch scores every record against query and returns the highest.
// Ties keep the first record in the given order. Records whose dimension
// differs from the query, or whose score is NaN or infinite, are skipped.
func (r *Retriever) FindBestMatch(ctx context.Context, query []float32, records []vectorstore.Record) Match {
	logger := contextutil.LoggerFromContext(ctx)

	scores := make([]float64, len(records))
	valid := make([]bool, len(records))
	score := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if len(records[i].Vector) != len(query) {
				continue
			}
			s := CosineSimilarity(query, records[i].Vector)
			if math.IsNaN(s) || math.IsInf(s, 0) {
				continue
			}
			scores[i] = s
			valid[i] = true
		}
	}

	if r.workers < 2 || len(records) < parallelScoreMin {
		score(0, len(records))
	} else {
		var g errgroup.Group
		g.SetLimit(r.workers)
		step := (len(records) + r.workers - 1) / r.workers
		for lo := 0; lo < len(records); lo += step {
			hi := min(lo+step, len(records))
			g.Go(func() error {
				score(lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	}

	best := -1
	highest := -1.0
	skipped := 0
	for i := range records {
		if !valid[i] {
			skipped++
			continue
		}
		if best == -1 || scores[i] > highest {
			best = i
			highest = scores[i]
		}
	}

	if skipped > 0 {
		logger.WarnContext(ctx, "skipped unscorable records", "skipped", skipped, "query_dim", len(query))
	}

	if best == -1 {
		return Match{Score: -1}
	}

	m := Match{Record: records[best], Score: highest, Found: highest >= r.threshold}
	logger.DebugContext(ctx, "best match",
		"file_name", m.Record.FileName,
		"chunk_index", m.Record.ChunkIndex,
		"score", m.Score,
		"threshold", r.threshold,
		"found", m.Found,
	)
	return m
}
