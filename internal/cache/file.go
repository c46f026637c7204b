package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
)

// FileStore is a JSON object on disk mapping "file:function:line" to the
// stored result, whose content_hash field carries the entry hash.
type FileStore struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
}

// NewFileStore returns an empty store that will be written to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, entries: make(map[string]Entry)}
}

// LoadFileStore reads path. A missing file yields an empty store. An
// unreadable or corrupt file yields an empty store and a *ReadError.
func LoadFileStore(path string) (*FileStore, error) {
	store := NewFileStore(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return store, &ReadError{Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return store, nil
	}

	var raw map[string]analysis.AnalysisResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return store, &ReadError{Path: path, Err: err}
	}
	for key, result := range raw {
		store.entries[key] = Entry{Result: result, Hash: result.ContentHash}
	}
	return store, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Lookup(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *FileStore) Put(key string, result analysis.AnalysisResult, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entryFor(result, hash)
	s.dirty = true
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush writes the whole mapping with sorted keys when anything changed.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	out := make(map[string]analysis.AnalysisResult, len(s.entries))
	for key, entry := range s.entries {
		out[key] = entry.Result
	}
	data, err := fileutil.EncodeIndentedJSON(out)
	if err != nil {
		return fmt.Errorf("failed to encode analysis cache: %w", err)
	}
	if err := fileutil.WriteIfChanged(s.path, data); err != nil {
		return fmt.Errorf("failed to write analysis cache: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *FileStore) Close() error { return nil }
