package indexer

import (
	"math"
	"slices"
)

// IngestReport describes the outcome of ingesting one document.
type IngestReport struct {
	// FileName is the name stored on every record of the document.
	FileName string `json:"file_name"`
	// State is the last state reached.
	State State `json:"state"`
	// RecordIDs are the IDs of the stored records, in chunk order.
	RecordIDs []string `json:"record_ids,omitempty"`
	// ChunksAttempted is the number of chunks sent for embedding.
	ChunksAttempted int `json:"chunks_attempted"`
	// ChunksEmbedded is the number of chunks embedded successfully.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunksSkipped is the number of chunks dropped after an embedding failure.
	ChunksSkipped int `json:"chunks_skipped"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count across all chunks.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

// computeTokenStats summarizes per-chunk token counts. Mean is rounded to two decimals;
// P95 is the nearest-rank percentile.
func computeTokenStats(counts []int) ChunkTokenStats {
	n := len(counts)
	if n == 0 {
		return ChunkTokenStats{}
	}

	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	total := 0
	for _, c := range sorted {
		total += c
	}

	rank := max(int(math.Ceil(float64(n)*0.95))-1, 0)

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[n-1],
		Mean: math.Round(float64(total)/float64(n)*100) / 100,
		P95:  sorted[rank],
	}
}
