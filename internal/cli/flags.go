package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func addAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("mode", "", "Analysis mode: fallback|sync|async")
	f.IntP("concurrency", "c", 0, "Maximum Summarizer requests in flight (async mode)")
	f.Duration("timeout", 0, "Timeout for each Summarizer call")
	f.Int("retries", 0, "Extra attempts after a transient Summarizer failure")
	f.Float64("rps", 0, "Summarizer requests per second, 0 for unlimited")
	f.String("provider", "", "Summarizer provider: openai|gemini|fake")
	f.String("model", "", "Model identifier")
	f.String("base-url", "", "OpenAI-compatible endpoint base URL")
	f.String("cache", "", "Cache backend: json|sqlite|none")
	f.String("cache-path", "", "Cache file location")
	f.String("format", "", "Analysis output format: json|jsonl")
	f.StringP("output", "o", "", "Analysis output path")
	f.String("log-level", "", "Log level: debug|info|warn|error|silent")
	f.String("guards", "", "Guard inference scope for static results: nearest|block")
	f.String("config", "", "Config file (default: .canalysis/config.yaml)")
	f.String("only", "", "Analyze only functions matching name, file, file:name or key")
	f.Bool("clean", false, "Remove previous analysis outputs before the run")
	f.Bool("json", false, "Print machine-readable run summary")
}

// OptionalStringFlag returns "" when the flag is not defined on cmd.
func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func optionalCountFlag(cmd *cobra.Command, name string) int {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return 0
	}
	value, _ := cmd.Flags().GetCount(name)
	return value
}
