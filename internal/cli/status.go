package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/languages"
	"github.com/Zhao-zixi/Canalysis/internal/output"
	"github.com/Zhao-zixi/Canalysis/internal/state"
)

func RunStatus(cmd *cobra.Command, args []string) error {
	start := time.Now()
	rootPath, err := resolveRoot(cmd, nil)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	registry := languages.NewDefaultRegistry()
	ignoreRules, err := LoadIgnoreRules(rootPath)
	if err != nil {
		return err
	}

	contextDir := output.ContextPath(rootPath)
	st, err := state.Load(contextDir)
	if err != nil {
		if IsCorruptStateError(err) {
			fmt.Fprintf(errWriter(cmd), "warning: corrupt manifest detected (%v); treating all files as changed\n", err)
			st = state.NewState()
			st.RunID = ""
		} else {
			return fmt.Errorf("failed to load manifest: %w", err)
		}
	}

	currentHashes, err := fileutil.ScanFileHashes(rootPath, registry, ignoreRules)
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}
	currentFiles := fileutil.ToSet(mapKeys(currentHashes))

	changed := st.ChangedFiles(currentHashes)
	added := st.NewFiles(currentHashes)
	deleted := st.DeletedFiles(currentFiles)
	impacted := st.ImpactedFiles(changed, deleted)

	// every function of a changed file misses the cache at worst
	stale := 0
	for _, file := range changed {
		stale += len(st.Files[file].Functions)
	}

	lastRun := ""
	if state.Exists(contextDir) {
		lastRun = st.RunID
	}
	summary := StatusSummary{
		Mode:          "status",
		RootPath:      rootPath,
		LastRunID:     lastRun,
		Scanned:       len(currentHashes),
		Reused:        MaxInt(len(currentHashes)-len(changed), 0),
		Changed:       len(changed),
		New:           len(added),
		Deleted:       len(deleted),
		Impacted:      len(impacted),
		StaleFuncs:    stale,
		DurationMS:    time.Since(start).Milliseconds(),
		ChangedFiles:  changed,
		DeletedFiles:  deleted,
		ImpactedFiles: impacted,
	}

	return PrintStatusSummary(outWriter(cmd), summary, asJSON)
}

func mapKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	return keys
}
