package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService docrag/internal/service ChatService

import (
	"context"
	"errors"
	"strings"

	"docrag/internal/contextutil"
	"docrag/internal/rag"
	"docrag/internal/storage"
)

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Query string
	// UserID, when set, records the exchange in the user's history.
	UserID *int64
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Response string
	Document string
	Score    float64
	Matched  bool
}

// ChatService answers questions from the ingested documents.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	engine  rag.Engine
	history storage.HistoryStore
}

// NewChatService creates a new ChatService. history may be nil, which disables recording.
func NewChatService(engine rag.Engine, history storage.HistoryStore) ChatService {
	return &chatService{
		engine:  engine,
		history: history,
	}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Query) == "" {
		logger.WarnContext(ctx, "empty query in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "query",
			Message: "cannot be empty",
		}
	}

	answer, err := s.engine.Ask(ctx, req.Query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer query", "error", err)
		switch {
		case errors.Is(err, rag.ErrEmbedding):
			return ChatResponse{}, classify(ErrExternalService, err, "failed to embed query")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ChatResponse{}, err
		default:
			return ChatResponse{}, WrapError(err, "failed to answer query")
		}
	}

	if req.UserID != nil && s.history != nil {
		entry := &storage.HistoryEntry{UserID: *req.UserID, Message: req.Query, Response: answer.Response}
		if err := s.history.Append(ctx, entry); err != nil {
			logger.WarnContext(ctx, "failed to record chat history", "user_id", *req.UserID, "error", err)
		}
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"query_length", len(req.Query),
		"matched", answer.Matched,
		"document", answer.Document,
	)
	return ChatResponse{
		Response: answer.Response,
		Document: answer.Document,
		Score:    answer.Score,
		Matched:  answer.Matched,
	}, nil
}
