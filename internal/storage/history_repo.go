package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks docrag/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultHistoryLimit is the number of entries returned by a history read.
const DefaultHistoryLimit = 10

// HistoryStore defines the interface for chat history storage operations.
type HistoryStore interface {
	// Append stores a new entry. ID and a zero Timestamp are filled in.
	Append(ctx context.Context, entry *HistoryEntry) error
	// Recent returns up to limit entries for userID, newest first.
	Recent(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)
	// Ping checks the database connection.
	Ping(ctx context.Context) error
}

// HistoryRepo provides methods for chat history operations on SQLite.
// It implements the HistoryStore interface.
type HistoryRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db, now: time.Now}
}

// Append inserts a new history entry.
func (r *HistoryRepo) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_history (user_id, message, response, timestamp) VALUES (?, ?, ?, ?)",
		entry.UserID, entry.Message, entry.Response, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get history entry ID: %w", err)
	}
	entry.ID = id
	return nil
}

// Recent returns the most recent entries for a user, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, timestamp FROM chat_history
		 WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &e.Response, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Ping checks the database connection.
func (r *HistoryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var _ HistoryStore = (*HistoryRepo)(nil)
