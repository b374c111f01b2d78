package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgHistoryRepo stores chat history in Postgres.
type PgHistoryRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgHistoryRepo creates a new PgHistoryRepo.
func NewPgHistoryRepo(pool *pgxpool.Pool) *PgHistoryRepo {
	return &PgHistoryRepo{pool: pool, now: time.Now}
}

// MigratePostgres creates the chat history table. It is idempotent.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_user_ts ON chat_history (user_id, timestamp)`,
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate chat_history: %w", err)
		}
	}
	return nil
}

func (r *PgHistoryRepo) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO chat_history (user_id, message, response, timestamp)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		entry.UserID, entry.Message, entry.Response, entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (r *PgHistoryRepo) Recent(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, message, response, timestamp FROM chat_history
		 WHERE user_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

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

func (r *PgHistoryRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

var _ HistoryStore = (*PgHistoryRepo)(nil)
