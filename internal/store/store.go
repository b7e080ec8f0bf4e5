// Package store implements the durable relational storage layer: memories,
// full-text index, checkpoints, sessions, and meta, with strict dedup,
// score decay, and per-project retention caps.
//
// Built against github.com/mattn/go-sqlite3, which must be compiled with
// the sqlite_fts5 build tag (-tags sqlite_fts5) for the memories_fts
// virtual table to be available.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Elizarfish/infinite-context/internal/logging"
)

// Store owns the database handle; it is the only component that mutates
// memory rows.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open ensures path's parent directory exists, opens (or creates) the
// database with write-ahead journaling, a busy timeout of at least 5s, and
// bootstraps the schema if meta.schema_version is absent. Every call opens
// a new handle and returns a new *Store; an already-open store for the same
// path is not reused.
func Open(path string) (*Store, error) {
	log := logging.Get(logging.CategoryStore)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("failed to create data directory %s: %v", dir, err)
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Error("failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection avoids SQLITE_BUSY races between this process's
	// own goroutines; cross-process contention is handled by busy_timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -8000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			log.Warn("failed to set %q: %v", p, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.bootstrap(); err != nil {
		log.Error("failed to initialize schema: %v", err)
		db.Close()
		s.db = nil
		return nil, err
	}

	log.Info("store opened at %s", path)
	return s, nil
}

func (s *Store) bootstrap() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err == nil && version == schemaVersion {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		// meta table itself may not exist yet; fall through to create it.
		if _, execErr := s.db.Exec(coreTables[0]); execErr != nil {
			return fmt.Errorf("create meta table: %w", execErr)
		}
	}

	for _, stmt := range coreTables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO meta(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		schemaVersion,
	)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the underlying handle for callers (e.g. the dashboard) that
// need read-only ad hoc queries beyond the operations below.
func (s *Store) DB() *sql.DB {
	return s.db
}
