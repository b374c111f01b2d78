package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_service.go -package=mocks docrag/internal/service HistoryService

import (
	"context"

	"docrag/internal/contextutil"
	"docrag/internal/storage"
)

// AddHistoryRequest is one exchange to record.
type AddHistoryRequest struct {
	UserID   int64
	Message  string
	Response string
}

// HistoryService reads and writes per-user chat history.
type HistoryService interface {
	AddEntry(ctx context.Context, req AddHistoryRequest) error
	// GetHistory returns the most recent entries, newest first.
	GetHistory(ctx context.Context, userID int64) ([]storage.HistoryEntry, error)
}

type historyService struct {
	store storage.HistoryStore
	limit int
}

// NewHistoryService creates a HistoryService returning storage.DefaultHistoryLimit entries per read.
func NewHistoryService(store storage.HistoryStore) HistoryService {
	return &historyService{store: store, limit: storage.DefaultHistoryLimit}
}

func (s *historyService) AddEntry(ctx context.Context, req AddHistoryRequest) error {
	logger := contextutil.LoggerFromContext(ctx)

	if req.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "must be a positive integer"}
	}
	if req.Message == "" {
		return &ValidationError{Field: "message", Message: "cannot be empty"}
	}

	entry := &storage.HistoryEntry{UserID: req.UserID, Message: req.Message, Response: req.Response}
	if err := s.store.Append(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "failed to append history", "user_id", req.UserID, "error", err)
		return WrapError(err, "failed to append history")
	}

	logger.InfoContext(ctx, "history entry added", "user_id", req.UserID, "entry_id", entry.ID)
	return nil
}

func (s *historyService) GetHistory(ctx context.Context, userID int64) ([]storage.HistoryEntry, error) {
	if userID <= 0 {
		return nil, &ValidationError{Field: "user_id", Message: "must be a positive integer"}
	}

	entries, err := s.store.Recent(ctx, userID, s.limit)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to read history", "user_id", userID, "error", err)
		return nil, WrapError(err, "failed to read history")
	}
	return entries, nil
}
