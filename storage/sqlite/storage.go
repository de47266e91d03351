package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jrsteele09/go-otp-auth-server/clients"
	"github.com/jrsteele09/go-otp-auth-server/token"
	"github.com/jrsteele09/go-otp-auth-server/users"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage owns the SQLite connection and hands out the per-aggregate
// repositories. All repositories share one connection so SQLite's single
// writer serialises the read-modify-write sequences.
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn and applies migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func New(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite with WAL mode supports many readers but only one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	storage := &Storage{db: db}
	if err := storage.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Users returns the user repository backed by this storage.
func (s *Storage) Users() users.UserRepo {
	return &userRepo{db: s.db}
}

// Clients returns the client repository backed by this storage.
func (s *Storage) Clients() clients.Repo {
	return &clientRepo{db: s.db}
}

// Tokens returns the token repository backed by this storage.
func (s *Storage) Tokens() token.Repo {
	return &tokenRepo{db: s.db}
}

func (s *Storage) runMigrations() error {
	goose.SetDialect("sqlite3")
	goose.SetBaseFS(embedMigrations)
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}
