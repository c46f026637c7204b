package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
	"github.com/Zhao-zixi/Canalysis/internal/state"
)

// RecordOutputHashes stores the content hash of each written output, keyed
// relative to contextDir when it lives there.
func RecordOutputHashes(st *state.State, contextDir string, outputPaths []string) error {
	st.OutputHashes = make(map[string]string)
	for _, outputPath := range outputPaths {
		hash, err := fileutil.HashFile(outputPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		key := outputPath
		if relPath, err := filepath.Rel(contextDir, outputPath); err == nil && filepath.IsLocal(relPath) {
			key = filepath.ToSlash(relPath)
		}
		st.SetOutputHash(key, hash)
	}
	return nil
}

func IsCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PersistState writes the manifest describing this run.
func PersistState(contextDir, runID string, mode analysis.Mode, result *parser.ParseResult, outputPaths []string) error {
	st := state.NewState()
	st.RunID = runID
	st.Mode = string(mode)
	st.SetParseResult(result)
	if err := RecordOutputHashes(st, contextDir, outputPaths); err != nil {
		return err
	}
	return st.Save(contextDir)
}
