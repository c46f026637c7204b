package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/ignore"
	"github.com/Zhao-zixi/Canalysis/internal/logging"
)

func resolveWorkingDirectory() (string, error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return rootPath, nil
}

// resolveRoot picks the positional path, then --root, then the working
// directory, and checks it exists.
func resolveRoot(cmd *cobra.Command, args []string) (string, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		flagRoot, err := OptionalStringFlag(cmd, "root")
		if err != nil {
			return "", err
		}
		path = flagRoot
	}
	if path == "" {
		return resolveWorkingDirectory()
	}

	rootPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	if _, err := os.Stat(rootPath); err != nil {
		return "", fmt.Errorf("failed to access path %q: %w", rootPath, err)
	}
	return rootPath, nil
}

func LoadIgnoreRules(rootPath string) ([]string, error) {
	ignorePath := filepath.Join(rootPath, ignore.FileName)
	f, err := os.Open(ignorePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ignore.FileName, err)
	}
	defer f.Close()

	rules := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ignore.FileName, err)
	}

	return rules, nil
}

// newLogger honors -v/--quiet when given and the configured level otherwise.
func newLogger(cmd *cobra.Command, configured string) *slog.Logger {
	quiet, _ := OptionalBoolFlag(cmd, "quiet")
	verbosity := optionalCountFlag(cmd, "verbose")
	level := logging.LevelFromString(configured)
	if quiet || verbosity > 0 {
		level = logging.LevelFromVerbosity(verbosity, quiet)
	}
	return logging.New(errWriter(cmd), level)
}

func outWriter(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func errWriter(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stderr
	}
	return cmd.ErrOrStderr()
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
