package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/nav"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "canalysis",
		Short: "Extract guarded call graphs from C source trees",
		Long: `Canalysis finds the function definitions in a C source tree, infers
the calls each function makes and the condition guarding each call, and asks
an LLM for a one-line summary of every function. Functions the LLM cannot
describe get a deterministic static analysis instead.

Results are written to .canalysis/ under the analyzed root. Unchanged
functions are served from a content-addressed cache on later runs.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("root", "", "Analysis root (default: current directory)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Silence logs and progress output")

	// Core Commands
	analyzeCmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Extract functions, analyze them and write .canalysis/ outputs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunAnalyze,
	}
	addAnalyzeFlags(analyzeCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create .canalysis/ with a default config.yaml",
		RunE:  RunInit,
	}

	// Inspect Commands
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which files changed since the last analysis",
		RunE:  RunStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, cache and provider credentials",
		RunE:  RunDoctor,
	}
	doctorCmd.Flags().Bool("json", false, "Print machine-readable doctor output")
	doctorCmd.Flags().Bool("audit", false, "Compare heuristic function detection with the C grammar")
	doctorCmd.Flags().String("config", "", "Config file (default: .canalysis/config.yaml)")

	// Navigate Commands
	showCmd := &cobra.Command{
		Use:   "show <name|key|file:line>",
		Short: "Show the analysis of one function",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunShow,
	}
	showCmd.Flags().Bool("json", false, "Print machine-readable result")

	callersCmd := &cobra.Command{
		Use:   "callers <name|key>",
		Short: "Show direct callers of a function with their guards",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunCallers,
	}
	callersCmd.Flags().Bool("json", false, "Print machine-readable caller results")

	calleesCmd := &cobra.Command{
		Use:   "callees <name|key>",
		Short: "Show direct callees of a function with their guards",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunCallees,
	}
	calleesCmd.Flags().Bool("json", false, "Print machine-readable callee results")

	traceCmd := &cobra.Command{
		Use:   "trace <name|key>",
		Short: "Trace outgoing calls from a function up to depth N",
		Args:  cobra.ExactArgs(1),
		RunE:  nav.RunTrace,
	}
	traceCmd.Flags().Int("depth", 2, "Traversal depth (>=1)")
	traceCmd.Flags().Bool("json", false, "Print machine-readable trace results")

	pathCmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find shortest call path between two functions",
		Args:  cobra.ExactArgs(2),
		RunE:  nav.RunPath,
	}
	pathCmd.Flags().Bool("json", false, "Print machine-readable path results")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank functions by name, file, callees and summary",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunSearch,
	}
	searchCmd.Flags().Int("limit", 10, "Maximum number of matches to return")
	searchCmd.Flags().Bool("json", false, "Print machine-readable matches")

	for _, cmd := range []*cobra.Command{showCmd, callersCmd, calleesCmd, traceCmd, pathCmd, searchCmd} {
		cmd.Flags().String("analysis", "", "Analysis file (default: .canalysis/function_analysis.json)")
	}

	// Additional Commands
	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install git pre-commit hook that refreshes the static analysis",
		RunE:  RunInstallHook,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "canalysis %s\n", version)
		},
	}

	rootCmd.AddCommand(
		analyzeCmd,
		initCmd,
		statusCmd,
		doctorCmd,
		showCmd,
		callersCmd,
		calleesCmd,
		traceCmd,
		pathCmd,
		searchCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}
