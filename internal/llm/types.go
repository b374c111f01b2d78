package llm

import (
	"net/http"
	"time"
)

// Chat roles understood by OpenAI-compatible servers.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature controls the randomness of the output.
	// If 0, the provider default is used.
	Temperature float32
}

// EmbedResult is the outcome of embedding one text in a batch.
// Exactly one of Vector and Err is set.
type EmbedResult struct {
	Vector []float32
	Err    error
}

// Option configures provider clients.
type Option func(*settings)

type settings struct {
	timeout     time.Duration
	retries     int
	retryDelay  time.Duration
	concurrency int
	httpClient  *http.Client
}

func defaultSettings() settings {
	return settings{
		timeout:     30 * time.Second,
		retries:     2,
		retryDelay:  250 * time.Millisecond,
		concurrency: 4,
	}
}

// WithTimeout bounds every individual provider call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how many times a retryable failure is retried.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithRetryDelay sets the base delay of the exponential backoff between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithConcurrency caps the number of in-flight calls made by EmbedMany.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}
