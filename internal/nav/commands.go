package nav

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
)

func loadForCommand(cmd *cobra.Command) (*Lookup, error) {
	rootPath, err := OptionalStringFlag(cmd, "root", "")
	if err != nil {
		return nil, err
	}
	if rootPath == "" {
		if rootPath, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}
	analysisPath, err := OptionalStringFlag(cmd, "analysis", "")
	if err != nil {
		return nil, err
	}
	return LoadLookup(rootPath, analysisPath)
}

func RunShow(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	lookup, err := loadForCommand(cmd)
	if err != nil {
		return err
	}
	node, err := lookup.ResolveOrLocation(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	result, defined := lookup.Results[node.ID]
	if asJSON {
		payload := map[string]any{"query": args[0], "function": RecordFromNode(node)}
		if defined {
			payload["analysis"] = result
		}
		return fileutil.PrintJSON(out, payload)
	}

	fmt.Fprintf(out, "%s [%s]\n", node.ID, node.Origin)
	if !defined {
		fmt.Fprintln(out, "no definition extracted (external call target)")
		return nil
	}
	fmt.Fprintf(out, "summary: %s\n", result.Summary)
	fmt.Fprintf(out, "confidence: %.2f\n", result.Confidence)
	if result.Notes != "" {
		fmt.Fprintf(out, "notes: %s\n", result.Notes)
	}
	for _, call := range result.Calls {
		fmt.Fprintf(out, "- %s when %s\n", call.Callee, call.Condition)
	}
	return nil
}

func RunCallers(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	lookup, err := loadForCommand(cmd)
	if err != nil {
		return err
	}
	node, err := lookup.ResolveSingle(args[0])
	if err != nil {
		return err
	}

	callers := lookup.Callers(node)
	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, map[string]any{
			"query":    args[0],
			"function": RecordFromNode(node),
			"callers":  callers,
		})
	}

	fmt.Fprintf(out, "callers for %s (%d)\n", node.ID, len(callers))
	if len(callers) == 0 {
		fmt.Fprintln(out, "no callers found")
		return nil
	}
	for _, caller := range callers {
		printEdge(cmd, caller)
	}
	return nil
}

func RunCallees(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	lookup, err := loadForCommand(cmd)
	if err != nil {
		return err
	}
	node, err := lookup.ResolveSingle(args[0])
	if err != nil {
		return err
	}

	callees := lookup.Callees(node)
	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, map[string]any{
			"query":    args[0],
			"function": RecordFromNode(node),
			"callees":  callees,
		})
	}

	fmt.Fprintf(out, "callees for %s (%d)\n", node.ID, len(callees))
	if len(callees) == 0 {
		fmt.Fprintln(out, "no callees found")
		return nil
	}
	for _, callee := range callees {
		printEdge(cmd, callee)
	}
	return nil
}

func printEdge(cmd *cobra.Command, edge EdgeRecord) {
	out := cmd.OutOrStdout()
	fn := edge.Function
	if fn.External {
		fmt.Fprintf(out, "- %s [external]", fn.Name)
	} else {
		fmt.Fprintf(out, "- %s [%s] %s:%d", fn.ID, fn.Origin, fn.File, fn.Line)
	}
	fmt.Fprintf(out, " when %s", edge.Condition)
	if edge.Confidence != "" {
		fmt.Fprintf(out, " (%s)", edge.Confidence)
	}
	fmt.Fprintln(out)
}

func RunTrace(cmd *cobra.Command, args []string) error {
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return fmt.Errorf("failed to read --depth flag: %w", err)
	}
	if depth < 1 {
		return fmt.Errorf("--depth must be >= 1")
	}
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	lookup, err := loadForCommand(cmd)
	if err != nil {
		return err
	}
	start, err := lookup.ResolveSingle(args[0])
	if err != nil {
		return err
	}

	hops := lookup.Trace(start, depth)
	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, map[string]any{
			"query": args[0],
			"start": RecordFromNode(start),
			"depth": depth,
			"hops":  hops,
		})
	}

	fmt.Fprintf(out, "trace from %s depth=%d hops=%d\n", start.ID, depth, len(hops))
	if len(hops) == 0 {
		fmt.Fprintln(out, "no outgoing hops found")
		return nil
	}
	for _, hop := range hops {
		fmt.Fprintf(out, "- d=%d %s -> %s when %s\n", hop.Depth, hop.From.ID, hop.To.ID, hop.Condition)
	}
	return nil
}

func RunPath(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	lookup, err := loadForCommand(cmd)
	if err != nil {
		return err
	}
	fromNode, err := lookup.ResolveSingle(args[0])
	if err != nil {
		return err
	}
	toNode, err := lookup.ResolveSingle(args[1])
	if err != nil {
		return err
	}

	pathIDs := lookup.ShortestPath(fromNode.ID, toNode.ID)
	if len(pathIDs) == 0 {
		return fmt.Errorf("no path found between %s and %s", fromNode.ID, toNode.ID)
	}
	steps := lookup.PathSteps(pathIDs)

	out := cmd.OutOrStdout()
	if asJSON {
		nodes := make([]FunctionRecord, 0, len(pathIDs))
		for _, id := range pathIDs {
			nodes = append(nodes, RecordFromNode(lookup.Graph.Nodes[id]))
		}
		return fileutil.PrintJSON(out, map[string]any{
			"from":   RecordFromNode(fromNode),
			"to":     RecordFromNode(toNode),
			"length": len(steps),
			"path":   nodes,
			"edges":  steps,
		})
	}

	fmt.Fprintf(out, "path %s -> %s length=%d\n", fromNode.ID, toNode.ID, len(steps))
	fmt.Fprintf(out, "1. %s\n", pathIDs[0])
	for i, step := range steps {
		fmt.Fprintf(out, "%d. %s (when %s)\n", i+2, step.To, step.Condition)
	}
	return nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string, defaultValue bool) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalStringFlag(cmd *cobra.Command, name string, defaultValue string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return defaultValue, nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}
