package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("storage")

// SQLite stores ledger lists in a single-file database.
// The pool is limited to one connection, which serializes every Update.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates the database file (and directory) if needed and migrates it.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "SQLite.Get")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	query, args, err := sqliteQueries.selectValue(key, false)
	if err != nil {
		return nil, err
	}
	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLite) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	ctx, span := tracer.Start(ctx, "SQLite.Update")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sqliteQueries.selectValue(key, true)
	if err != nil {
		return err
	}
	var current []byte
	var value string
	switch err := tx.QueryRowContext(ctx, query, args...).Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("select %s: %w", key, err)
	default:
		current = []byte(value)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	query, args, err = sqliteQueries.upsert(key, next, time.Now())
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
