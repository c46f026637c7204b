package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/config"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/ignore"
	"github.com/Zhao-zixi/Canalysis/internal/output"
)

const defaultIgnoreFile = `# Paths excluded from canalysis, gitignore syntax.
# .git/, .canalysis/, build/, out/, vendor/ and node_modules/ are always skipped.
`

func RunInit(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(cmd, nil)
	if err != nil {
		return err
	}

	contextDir := output.ContextPath(rootPath)
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", contextDir, err)
	}

	configPath, err := config.WriteDefault(rootPath)
	if err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	ignorePath := filepath.Join(rootPath, ignore.FileName)
	if err := fileutil.WriteIfMissing(ignorePath, []byte(defaultIgnoreFile), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ignore.FileName, err)
	}

	out := outWriter(cmd)
	fmt.Fprintf(out, "Initialized context directory at %s\n", contextDir)
	fmt.Fprintf(out, "config: %s\n", configPath)
	fmt.Fprintf(out, "ignore rules: %s\n", ignorePath)
	return nil
}
