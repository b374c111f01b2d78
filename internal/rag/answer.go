package rag

import (
	"context"
	"fmt"

	"docrag/internal/contextutil"
)

const (
	// SystemPrompt is sent as the system message of every completion.
	SystemPrompt = "You are a helpful assistant."
	// FallbackResponse is returned when the completion provider fails.
	FallbackResponse = "Sorry, I couldn't process your request."

	promptTemplate = "Use the following context to answer the question.\n\nContext: %s\n\nUser: %s\nAI:"
)

// Generator produces an answer from a context chunk and a query.
type Generator struct {
	completer Completer
}

func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// BuildPrompt renders the user prompt for a context chunk and a query.
func BuildPrompt(contextText, query string) string {
	return fmt.Sprintf(promptTemplate, contextText, query)
}

// Generate never fails: provider errors are logged and replaced by FallbackResponse.
func (g *Generator) Generate(ctx context.Context, contextText, query string) string {
	logger := contextutil.LoggerFromContext(ctx)

	reply, err := g.completer.Complete(ctx, SystemPrompt, BuildPrompt(contextText, query))
	if err != nil {
		logger.ErrorContext(ctx, "completion failed, returning fallback", "error", fmt.Errorf("%w: %w", ErrCompletion, err))
		return FallbackResponse
	}
	return reply
}
