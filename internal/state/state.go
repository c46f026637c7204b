// Package state records what the last analysis run saw so status can report
// drift without re-analyzing.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

const (
	StateFile               = "manifest.json"
	CurrentStateVersion     = "1"
	CurrentExtractorVersion = "heuristic-c-v1"
)

// FunctionState is one extracted function as of the last run.
type FunctionState struct {
	Name string `json:"name"`
	Line int    `json:"line"`
	Hash string `json:"hash"`
}

// FileState tracks the state of a single file
type FileState struct {
	Hash         string          `json:"hash"`
	Language     string          `json:"language,omitempty"`
	Functions    []FunctionState `json:"functions,omitempty"`
	Dependencies []string        `json:"dependencies,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// State is the manifest of the last run.
type State struct {
	Version          string               `json:"version"`
	ExtractorVersion string               `json:"extractor_version,omitempty"`
	RunID            string               `json:"run_id,omitempty"`
	Mode             string               `json:"mode,omitempty"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Files            map[string]FileState `json:"files"`
	OutputHashes     map[string]string    `json:"output_hashes,omitempty"`
}

// NewState creates an empty manifest with a fresh run ID.
func NewState() *State {
	return &State{
		Version:          CurrentStateVersion,
		ExtractorVersion: CurrentExtractorVersion,
		RunID:            uuid.NewString(),
		Files:            make(map[string]FileState),
		OutputHashes:     make(map[string]string),
	}
}

// Load reads the manifest from contextDir. A missing manifest yields an
// empty state.
func Load(contextDir string) (*State, error) {
	path := filepath.Join(contextDir, StateFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	migrateState(&state)
	return &state, nil
}

// Exists reports whether a manifest has been written to contextDir.
func Exists(contextDir string) bool {
	_, err := os.Stat(filepath.Join(contextDir, StateFile))
	return err == nil
}

// Save writes the manifest to contextDir.
func (s *State) Save(contextDir string) error {
	migrateState(s)
	s.UpdatedAt = time.Now().UTC()

	data, err := fileutil.EncodeIndentedJSON(s)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(filepath.Join(contextDir, StateFile), data)
}

// SetFileHash updates the hash for a file
func (s *State) SetFileHash(file, hash string) {
	s.Files[file] = FileState{
		Hash:      hash,
		UpdatedAt: time.Now().UTC(),
	}
}

// SetFileData stores what extraction found in file.
func (s *State) SetFileData(file parser.FileFunctions) {
	functions := make([]FunctionState, 0, len(file.Functions))
	for _, fn := range file.Functions {
		functions = append(functions, FunctionState{Name: fn.Name, Line: fn.Line, Hash: fn.Hash()})
	}
	deps := make([]string, 0, len(file.Includes))
	for _, inc := range file.Includes {
		deps = append(deps, parser.ResolveInclude(file.Path, inc))
	}
	s.Files[file.Path] = FileState{
		Hash:         file.Hash,
		Language:     file.Language,
		Functions:    functions,
		Dependencies: fileutil.DedupeStrings(deps),
		UpdatedAt:    time.Now().UTC(),
	}
}

// SetParseResult replaces all file entries with result.
func (s *State) SetParseResult(result *parser.ParseResult) {
	s.Files = make(map[string]FileState, len(result.Files))
	for _, file := range result.Files {
		s.SetFileData(file)
	}
}

// FunctionCount returns how many functions the manifest knows about.
func (s *State) FunctionCount() int {
	total := 0
	for _, file := range s.Files {
		total += len(file.Functions)
	}
	return total
}

// GetFileHash returns the stored hash for a file
func (s *State) GetFileHash(file string) (string, bool) {
	fs, ok := s.Files[file]
	if !ok {
		return "", false
	}
	return fs.Hash, true
}

// HasChanged returns true if the file hash differs from stored
func (s *State) HasChanged(file, currentHash string) bool {
	storedHash, ok := s.GetFileHash(file)
	if !ok {
		return true // New file
	}
	return storedHash != currentHash
}

// ChangedFiles returns new or modified files, sorted.
func (s *State) ChangedFiles(currentHashes map[string]string) []string {
	changed := make([]string, 0)
	for file, hash := range currentHashes {
		if s.HasChanged(file, hash) {
			changed = append(changed, file)
		}
	}
	sort.Strings(changed)
	return changed
}

// NewFiles returns files absent from the manifest, sorted.
func (s *State) NewFiles(currentHashes map[string]string) []string {
	added := make([]string, 0)
	for file := range currentHashes {
		if _, ok := s.Files[file]; !ok {
			added = append(added, file)
		}
	}
	sort.Strings(added)
	return added
}

// DeletedFiles returns tracked files that no longer exist, sorted.
func (s *State) DeletedFiles(currentFiles map[string]bool) []string {
	deleted := make([]string, 0)
	for file := range s.Files {
		if !currentFiles[file] {
			deleted = append(deleted, file)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// ImpactedFiles returns changed/deleted files plus every file that includes
// one of them, directly or transitively.
func (s *State) ImpactedFiles(changedFiles, deletedFiles []string) []string {
	reverse := make(map[string][]string)
	for file, fileState := range s.Files {
		for _, dep := range fileState.Dependencies {
			reverse[dep] = append(reverse[dep], file)
		}
	}

	impacted := make(map[string]bool)
	queue := make([]string, 0, len(changedFiles)+len(deletedFiles))
	for _, file := range append(append([]string(nil), changedFiles...), deletedFiles...) {
		if !impacted[file] {
			impacted[file] = true
			queue = append(queue, file)
		}
	}

	for len(queue) > 0 {
		file := queue[0]
		queue = queue[1:]
		for _, depender := range reverse[file] {
			if impacted[depender] {
				continue
			}
			impacted[depender] = true
			queue = append(queue, depender)
		}
	}

	out := make([]string, 0, len(impacted))
	for file := range impacted {
		out = append(out, file)
	}
	sort.Strings(out)
	return out
}

// SetOutputHash records the content hash for a generated output file.
func (s *State) SetOutputHash(path, hash string) {
	if s.OutputHashes == nil {
		s.OutputHashes = make(map[string]string)
	}
	s.OutputHashes[path] = hash
}

func migrateState(s *State) {
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	if s.OutputHashes == nil {
		s.OutputHashes = make(map[string]string)
	}
	if s.Version == "" {
		s.Version = CurrentStateVersion
	}
	if s.ExtractorVersion == "" {
		s.ExtractorVersion = CurrentExtractorVersion
	}
}
