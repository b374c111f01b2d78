package llm

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"docrag/internal/contextutil"
)

// EmbeddingsClient is a client for OpenAI-compatible embeddings APIs.
type EmbeddingsClient struct {
	BaseURL      string
	Model        string
	ExpectedSize int // Expected vector size for validation
	client       *openai.Client
	opts         settings
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the expected vector size (from EMBEDDING_DIMENSIONS config).
// All embeddings returned are validated against this size when it is positive.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, opts ...Option) *EmbeddingsClient {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if s.httpClient != nil {
		cfg.HTTPClient = s.httpClient
	}

	return &EmbeddingsClient{
		BaseURL:      cfg.BaseURL,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       openai.NewClientWithConfig(cfg),
		opts:         s,
	}
}

// EmbedTexts generates embeddings for the given texts in a single provider request.
// Returns one vector per input text, in input order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	var result [][]float32
	err := c.opts.call(ctx, "embeddings", func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.Model),
			Input: texts,
		})
		if err != nil {
			return fmt.Errorf("create embeddings: %w", err)
		}

		if len(resp.Data) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}

		vectors := make([][]float32, len(resp.Data))
		for _, data := range resp.Data {
			if data.Index < 0 || data.Index >= len(vectors) {
				return fmt.Errorf("embedding index %d out of range", data.Index)
			}
			if c.ExpectedSize > 0 && len(data.Embedding) != c.ExpectedSize {
				return fmt.Errorf("embedding %d has size %d, expected %d", data.Index, len(data.Embedding), c.ExpectedSize)
			}
			if !finite(data.Embedding) {
				return fmt.Errorf("embedding %d contains NaN or Inf", data.Index)
			}
			vectors[data.Index] = data.Embedding
		}
		result = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Embed returns the embedding of a single text.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedMany embeds each text with its own provider call on a bounded worker pool.
// A failed item is logged and reported in its EmbedResult; the remaining items still run.
// Results are returned in input order.
func (c *EmbeddingsClient) EmbedMany(ctx context.Context, texts []string) []EmbedResult {
	logger := contextutil.LoggerFromContext(ctx)
	results := make([]EmbedResult, len(texts))

	var g errgroup.Group
	g.SetLimit(c.opts.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = EmbedResult{Err: err}
				return nil
			}
			vec, err := c.Embed(ctx, text)
			if err != nil {
				logger.WarnContext(ctx, "failed to embed item", "index", i, "text_length", len(text), "error", err)
				results[i] = EmbedResult{Err: err}
				return nil
			}
			results[i] = EmbedResult{Vector: vec}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
