package tiercache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLDialect defines the SQL syntax variant.
type SQLDialect string

const (
	DialectSQLite   SQLDialect = "sqlite"
	DialectPostgres SQLDialect = "postgres"
	DialectMySQL    SQLDialect = "mysql"
)

// SQLBulkStore implements BulkStore using database/sql.
// It supports SQLite, Postgres, and MySQL. Rows are indexed by write
// timestamp so retention eviction is a range delete, not a table scan.
type SQLBulkStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
}

// NewSQLBulkStore creates a new SQL-backed bulk store.
// The user is responsible for opening the *sql.DB with their preferred driver.
func NewSQLBulkStore(db *sql.DB, tableName string, dialect SQLDialect) *SQLBulkStore {
	if tableName == "" {
		tableName = "tiercache_bulk"
	}
	return &SQLBulkStore{
		db:        db,
		tableName: tableName,
		dialect:   dialect,
	}
}

// InitSchema creates the table and the written_at index if they don't exist.
// This is a helper for "migration-free" usage.
func (s *SQLBulkStore) InitSchema(ctx context.Context) error {
	blobType := "BLOB"
	timestampType := "TIMESTAMP"

	if s.dialect == DialectPostgres {
		blobType = "BYTEA"
		timestampType = "TIMESTAMPTZ"
	} else if s.dialect == DialectMySQL {
		timestampType = "DATETIME(6)"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key VARCHAR(512) PRIMARY KEY,
			data %s,
			written_at %s
		);
	`, s.tableName, blobType, timestampType)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return err
	}

	indexName := fmt.Sprintf("idx_%s_written_at", s.tableName)
	if s.dialect == DialectMySQL {
		// MySQL has no CREATE INDEX IF NOT EXISTS; tolerate the duplicate.
		query = fmt.Sprintf("CREATE INDEX %s ON %s (written_at)", indexName, s.tableName)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			if strings.Contains(err.Error(), "Duplicate key name") {
				return nil
			}
			return err
		}
		return nil
	}

	query = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (written_at)", indexName, s.tableName)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLBulkStore) Get(ctx context.Context, key string) ([]byte, error) {
	p1 := "?"
	if s.dialect == DialectPostgres {
		p1 = "$1"
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE cache_key = %s", s.tableName, p1)

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return data, nil
}

func (s *SQLBulkStore) Set(ctx context.Context, key string, data []byte, writtenAt time.Time) error {
	placeholders := []string{"?", "?", "?"}
	if s.dialect == DialectPostgres {
		placeholders = []string{"$1", "$2", "$3"}
	}
	phStr := strings.Join(placeholders, ", ")

	var query string
	if s.dialect == DialectMySQL {
		query = fmt.Sprintf(`
			INSERT INTO %s (cache_key, data, written_at)
			VALUES (%s)
			ON DUPLICATE KEY UPDATE
				data = VALUES(data),
				written_at = VALUES(written_at)
		`, s.tableName, phStr)
	} else {
		// SQLite and Postgres use ON CONFLICT
		query = fmt.Sprintf(`
			INSERT INTO %s (cache_key, data, written_at)
			VALUES (%s)
			ON CONFLICT(cache_key) DO UPDATE SET
				data = excluded.data,
				written_at = excluded.written_at
		`, s.tableName, phStr)
	}

	_, err := s.db.ExecContext(ctx, query, key, data, writtenAt.UTC())
	return err
}

func (s *SQLBulkStore) Delete(ctx context.Context, key string) error {
	p1 := "?"
	if s.dialect == DialectPostgres {
		p1 = "$1"
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s", s.tableName, p1)
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

func (s *SQLBulkStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p1 := "?"
	if s.dialect == DialectPostgres {
		p1 = "$1"
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE written_at < %s", s.tableName, p1)
	res, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLBulkStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	_, err := s.db.ExecContext(ctx, query)
	return err
}
