package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docrag/internal/contextutil"
)

// call runs fn with a per-attempt timeout and retries retryable failures
// with exponential backoff. A cancelled parent context is never retried.
func (s settings) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	logger := contextutil.LoggerFromContext(ctx)

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay << (attempt - 1)
			logger.WarnContext(ctx, "retrying provider call", "op", op, "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, s.retries+1, err)
}

// isRetryable reports whether err is a timeout, a transport failure,
// a rate limit or a server-side error.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
