// Package cache persists analysis results keyed by function identity and
// guarded by a content hash of the function source.
package cache

import (
	"fmt"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
)

// Entry is a stored result together with the hash of the source it describes.
type Entry struct {
	Result analysis.AnalysisResult
	Hash   string
}

// Store is a flat key -> Entry mapping. Lookup and Put may be called from
// several goroutines; Flush persists pending changes.
type Store interface {
	Lookup(key string) (Entry, bool)
	Put(key string, result analysis.AnalysisResult, hash string)
	Len() int
	Flush() error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
	BackendNone   Backend = "none"
)

// DefaultFile is the JSON store name inside the context directory.
const DefaultFile = "function_analysis_store.json"

// DefaultDatabase is the SQLite store name inside the context directory.
const DefaultDatabase = "function_analysis_store.db"

// ParseBackend validates a configured backend name.
func ParseBackend(raw string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(raw))) {
	case BackendJSON, "":
		return BackendJSON, nil
	case BackendSQLite:
		return BackendSQLite, nil
	case BackendNone, "off":
		return BackendNone, nil
	default:
		return "", fmt.Errorf("unsupported cache backend %q (supported: json, sqlite, none)", raw)
	}
}

// ReadError reports a store that could not be loaded. The store returned
// alongside it is empty and still usable.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read analysis cache %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Open returns the store for backend at path. On a ReadError the returned
// store is empty but usable; other errors return a nil store. A SQLite
// database that cannot be opened at all yields an in-memory store.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendNone:
		return NewMemoryStore(), nil
	case BackendSQLite:
		store, err := OpenSQLite(path)
		if store == nil {
			// still analyze; results just are not persisted this run
			return NewMemoryStore(), &ReadError{Path: path, Err: err}
		}
		return store, err
	default:
		store, err := LoadFileStore(path)
		if store == nil {
			return nil, err
		}
		return store, err
	}
}

func entryFor(result analysis.AnalysisResult, hash string) Entry {
	result.ContentHash = hash
	result.Fallback = false
	result.Failure = ""
	return Entry{Result: result, Hash: hash}
}
