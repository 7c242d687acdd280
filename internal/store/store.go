// Package store implements the Store (spec.md §4.5): the durable record of
// tracks, alerts, restricted regions, and operator accounts, serializing
// concurrent writes. Adapted from the teacher's db/service.go — same
// embedded-schema, single-writer-lane SQLite approach, generalized from the
// teacher's organizations/entities schema to this domain's four core tables
// plus the allowlist table.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store owns all persistent rows (spec.md §3 "Ownership").
type Store struct {
	db *sql.DB
}

type Config struct {
	DBPath         string
	MaxOpenConns   int
	AutoInitialize bool
}

func DefaultConfig() *Config {
	return &Config{
		DBPath:         "./data/overwatch.db",
		MaxOpenConns:   1, // SQLite doesn't handle concurrent writers well, per the teacher
		AutoInitialize: true,
	}
}

func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	existed := fileExists(cfg.DBPath)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}

	if !existed && cfg.AutoInitialize {
		log.Println("Database not found, initializing schema...")
		if err := s.initSchema(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	} else if cfg.AutoInitialize {
		if err := s.initSchema(); err != nil {
			return nil, fmt.Errorf("failed to verify schema: %w", err)
		}
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
