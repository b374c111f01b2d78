package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func writeEmbeddings(w http.ResponseWriter, vectors ...[]float32) {
	data := make([]embeddingDatum, len(vectors))
	for i, v := range vectors {
		data[i] = embeddingDatum{Object: "embedding", Embedding: v, Index: i}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-ada-002",
	})
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "invalid_request_error",
		},
	})
}

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:8080/v1", "test-key", "test-model", 768)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("NewEmbeddingsClient() BaseURL = %v, want http://localhost:8080/v1", client.BaseURL)
	}
	if client.ExpectedSize != 768 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 768", client.ExpectedSize)
	}
	if client.opts.concurrency != 4 {
		t.Errorf("NewEmbeddingsClient() concurrency = %v, want 4", client.opts.concurrency)
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(w http.ResponseWriter, r *http.Request)
		wantErr      bool
		wantCount    int
	}{
		{
			name:         "successful embedding",
			texts:        []string{"Hello", "World"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/embeddings" {
					t.Errorf("expected /v1/embeddings, got %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
				}
				writeEmbeddings(w, []float32{1, 2, 3}, []float32{4, 5, 6})
			},
			wantCount: 2,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called")
			},
			wantErr: true,
		},
		{
			name:         "wrong embedding count",
			texts:        []string{"Hello", "World"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				writeEmbeddings(w, []float32{1, 2, 3})
			},
			wantErr: true,
		},
		{
			name:         "wrong vector size",
			texts:        []string{"Hello"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				writeEmbeddings(w, []float32{1, 2})
			},
			wantErr: true,
		},
		{
			name:         "server error",
			texts:        []string{"Hello"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, http.StatusInternalServerError, "internal server error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", tt.expectedSize, WithRetries(0))
			embeddings, err := client.EmbedTexts(context.Background(), tt.texts)

			if tt.wantErr {
				if err == nil {
					t.Errorf("EmbedTexts() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("EmbedTexts() unexpected error: %v", err)
			}

			if len(embeddings) != tt.wantCount {
				t.Errorf("EmbedTexts() returned %d embeddings, want %d", len(embeddings), tt.wantCount)
			}
			for i, emb := range embeddings {
				if len(emb) != tt.expectedSize {
					t.Errorf("EmbedTexts() embedding[%d] size = %d, want %d", i, len(emb), tt.expectedSize)
				}
			}
		})
	}
}

func TestEmbeddingsClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "text-embedding-ada-002" {
			t.Errorf("expected model text-embedding-ada-002, got %s", req.Model)
		}
		if len(req.Input) != 1 || req.Input[0] != "what is rag?" {
			t.Errorf("unexpected input %v", req.Input)
		}
		writeEmbeddings(w, []float32{0.5, 0.25, 0.125})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "text-embedding-ada-002", 3)
	vec, err := client.Embed(context.Background(), "what is rag?")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.5 || vec[2] != 0.125 {
		t.Errorf("Embed() = %v, want [0.5 0.25 0.125]", vec)
	}
}

func TestEmbeddingsClient_EmbedMany_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) == 1 && req.Input[0] == "bad" {
			writeAPIError(w, http.StatusBadRequest, "input rejected")
			return
		}
		writeEmbeddings(w, []float32{float32(len(req.Input[0])), 1})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", 2, WithConcurrency(2))
	results := client.EmbedMany(context.Background(), []string{"a", "bad", "ccc"})

	if len(results) != 3 {
		t.Fatalf("EmbedMany() returned %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Vector[0] != 1 {
		t.Errorf("results[0] = %+v, want vector starting with 1", results[0])
	}
	if results[1].Err == nil || results[1].Vector != nil {
		t.Errorf("results[1] = %+v, want error", results[1])
	}
	if results[2].Err != nil || results[2].Vector[0] != 3 {
		t.Errorf("results[2] = %+v, want vector starting with 3", results[2])
	}
}

func TestEmbeddingsClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeAPIError(w, http.StatusServiceUnavailable, "overloaded")
			return
		}
		writeEmbeddings(w, []float32{1, 0})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", 2,
		WithRetries(2), WithRetryDelay(time.Millisecond))

	if _, err := client.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestEmbeddingsClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusBadRequest, "too many tokens")
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", 2,
		WithRetries(3), WithRetryDelay(time.Millisecond))

	if _, err := client.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("Embed() expected error, got nil")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestEmbeddingsClient_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", 2,
		WithTimeout(20*time.Millisecond), WithRetries(1), WithRetryDelay(time.Millisecond))

	if _, err := client.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("Embed() expected timeout error, got nil")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestEmbeddingsClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, []float32{1, 0})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL+"/v1", "test-key", "test-model", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := client.EmbedMany(ctx, []string{"a", "b"})
	for i, res := range results {
		if res.Err == nil {
			t.Errorf("results[%d] expected error for cancelled context", i)
		}
	}
}

func TestFinite(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		want bool
	}{
		{name: "ordinary", v: []float32{0.1, -0.2, 0}, want: true},
		{name: "empty", v: nil, want: true},
		{name: "NaN", v: []float32{0.1, float32(math.NaN())}, want: false},
		{name: "positive Inf", v: []float32{float32(math.Inf(1))}, want: false},
		{name: "negative Inf", v: []float32{0, float32(math.Inf(-1))}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := finite(tt.v); got != tt.want {
				t.Errorf("finite(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
