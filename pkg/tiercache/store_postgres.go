package tiercache

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBulkStore implements BulkStore using github.com/jackc/pgx/v5.
// It is designed to work with pgxpool; use SQLBulkStore with DialectPostgres
// if you already have a database/sql connection.
type PostgresBulkStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresBulkStore creates a new Postgres-backed bulk store.
func NewPostgresBulkStore(pool *pgxpool.Pool, tableName string) *PostgresBulkStore {
	if tableName == "" {
		tableName = "tiercache_bulk"
	}
	return &PostgresBulkStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the table and the written_at index if they don't exist.
func (s *PostgresBulkStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key TEXT PRIMARY KEY,
			data BYTEA,
			written_at TIMESTAMPTZ
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return err
	}

	query = fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_written_at ON %s (written_at)",
		s.tableName, s.tableName)
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresBulkStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE cache_key = $1", s.tableName)

	var data []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return data, nil
}

func (s *PostgresBulkStore) Set(ctx context.Context, key string, data []byte, writtenAt time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (cache_key, data, written_at)
		VALUES ($1, $2, $3)
		ON CONFLICT(cache_key) DO UPDATE SET
			data = excluded.data,
			written_at = excluded.written_at
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query, key, data, writtenAt.UTC())
	return err
}

func (s *PostgresBulkStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, key)
	return err
}

func (s *PostgresBulkStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE written_at < $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresBulkStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	_, err := s.pool.Exec(ctx, query)
	return err
}
