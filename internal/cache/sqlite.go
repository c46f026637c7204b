package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analysis_cache (
	key          TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	payload      TEXT NOT NULL,
	updated_at   TEXT NOT NULL
)`

// SQLiteStore keeps entries in a single SQLite table. Rows are read once on
// open and pending puts are written in one transaction on Flush.
type SQLiteStore struct {
	path    string
	conn    *sql.DB
	mu      sync.RWMutex
	entries map[string]Entry
	pending map[string]Entry
}

// OpenSQLite opens or creates the database at path. Rows that fail to decode
// are skipped and reported as a *ReadError with a usable store. A file that
// is not a usable database is moved to path+".corrupt" and replaced by an
// empty one, also reported as a *ReadError.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, openErr := openDatabase(path)
	if openErr != nil {
		if err := setAside(path); err != nil {
			return nil, fmt.Errorf("%w; could not move it aside: %v", openErr, err)
		}
		var err error
		if conn, err = openDatabase(path); err != nil {
			return nil, err
		}
	}

	store := &SQLiteStore{
		path:    path,
		conn:    conn,
		entries: make(map[string]Entry),
		pending: make(map[string]Entry),
	}
	if err := store.load(); err != nil {
		return store, &ReadError{Path: path, Err: err}
	}
	if openErr != nil {
		return store, &ReadError{Path: path, Err: openErr}
	}
	return store, nil
}

func openDatabase(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return conn, nil
}

// setAside renames a damaged database and drops its journal files.
func setAside(path string) error {
	if err := os.Rename(path, path+".corrupt"); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) load() error {
	rows, err := s.conn.Query(`SELECT key, content_hash, payload FROM analysis_cache`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var firstErr error
	for rows.Next() {
		var key, hash, payload string
		if err := rows.Scan(&key, &hash, &payload); err != nil {
			return err
		}
		var result analysis.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("row %s: %w", key, err)
			}
			continue
		}
		result.ContentHash = hash
		s.entries[key] = Entry{Result: result, Hash: hash}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return firstErr
}

func (s *SQLiteStore) Lookup(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *SQLiteStore) Put(key string, result analysis.AnalysisResult, hash string) {
	entry := entryFor(result, hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	s.pending[key] = entry
}

func (s *SQLiteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush upserts every pending entry in a single transaction.
func (s *SQLiteStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO analysis_cache (key, content_hash, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content_hash = excluded.content_hash,
			payload = excluded.payload,
			updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for key, entry := range s.pending {
		payload, err := json.Marshal(entry.Result)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if _, err := stmt.Exec(key, entry.Hash, string(payload), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.pending = make(map[string]Entry)
	return nil
}

// Close closes the database connection. Unflushed entries are discarded.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
