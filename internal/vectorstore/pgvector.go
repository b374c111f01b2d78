package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docrag/internal/contextutil"
)

// PgvectorStore implements VectorStore on a Postgres table with a pgvector column.
type PgvectorStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgvectorStore wraps an existing pool. The table is created by EnsureSchema.
func NewPgvectorStore(pool *pgxpool.Pool, table string) (*PgvectorStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	return &PgvectorStore{pool: pool, table: table}, nil
}

func (s *PgvectorStore) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// EnsureSchema creates the vector extension and the chunk table.
// seq keeps insertion order stable for ScanAll.
func (s *PgvectorStore) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.ident(), dimensions)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Upsert writes all records in one transaction.
func (s *PgvectorStore) Upsert(ctx context.Context, records []Record) (err error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.WarnContext(ctx, "rollback failed", "error", rbErr)
			}
		}
	}()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, file_name, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, s.ident())

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(stmt, rec.ID, rec.FileName, rec.ChunkIndex, rec.Text, pgvector.NewVector(rec.Vector))
	}

	br := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err = br.Exec(); err != nil {
			_ = br.Close()
			logger.ErrorContext(ctx, "failed to insert record", "table", s.table, "index", i, "error", err)
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	logger.InfoContext(ctx, "upserted records", "table", s.table, "count", len(records))
	return nil
}

// ScanAll returns every row in insertion order.
func (s *PgvectorStore) ScanAll(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, file_name, chunk_index, content, embedding::text
		FROM %s
		ORDER BY seq`, s.ident()))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec Record
			vec pgvector.Vector
		)
		if scanErr := rows.Scan(&rec.ID, &rec.FileName, &rec.ChunkIndex, &rec.Text, &vec); scanErr != nil {
			return nil, fmt.Errorf("scan record: %w", scanErr)
		}
		rec.Vector = vec.Slice()
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return records, nil
}

// Ping checks the database connection.
func (s *PgvectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ VectorStore = (*PgvectorStore)(nil)
