package nav

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/graph"
	"github.com/Zhao-zixi/Canalysis/internal/output"
)

// Lookup indexes a call graph and the results it was built from.
type Lookup struct {
	Graph   *graph.Graph
	Results map[string]analysis.AnalysisResult
	ByName  map[string][]string
}

// NewLookup builds the graph for results and indexes it.
func NewLookup(results []analysis.AnalysisResult) *Lookup {
	g := graph.Build(results)
	l := &Lookup{
		Graph:   g,
		Results: make(map[string]analysis.AnalysisResult, len(results)),
		ByName:  make(map[string][]string),
	}
	for _, r := range results {
		l.Results[r.Key()] = r
	}
	for id, node := range g.Nodes {
		l.ByName[node.Name] = append(l.ByName[node.Name], id)
	}
	for name := range l.ByName {
		sort.Strings(l.ByName[name])
	}
	return l
}

// LoadLookup reads the analysis file at path, or the default one under root
// when path is empty.
func LoadLookup(root, path string) (*Lookup, error) {
	if path == "" {
		found, err := output.FindAnalysis(root)
		if err != nil {
			return nil, err
		}
		path = found
	}
	results, err := output.LoadAnalysis(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}
	return NewLookup(results), nil
}

// Resolve matches an identity key, an external ID, a bare name or
// "file:name".
func (l *Lookup) Resolve(query string) []*graph.Node {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if node, ok := l.Graph.Nodes[query]; ok {
		return []*graph.Node{node}
	}

	ids := l.ByName[query]
	if idx := strings.LastIndex(query, ":"); len(ids) == 0 && idx > 0 {
		file, name := query[:idx], query[idx+1:]
		for _, id := range l.ByName[name] {
			if node := l.Graph.Nodes[id]; node != nil && node.File == file {
				ids = append(ids, id)
			}
		}
	}

	out := make([]*graph.Node, 0, len(ids))
	for _, id := range ids {
		if node := l.Graph.Nodes[id]; node != nil {
			out = append(out, node)
		}
	}
	return out
}

// ResolveSingle returns the one node matching query or explains why not.
func (l *Lookup) ResolveSingle(query string) (*graph.Node, error) {
	matches := l.Resolve(query)
	if len(matches) == 0 {
		return nil, fmt.Errorf("function %q not found", query)
	}
	if len(matches) == 1 {
		return matches[0], nil
	}

	options := make([]string, 0, len(matches))
	for _, match := range matches {
		options = append(options, match.ID)
	}
	sort.Strings(options)
	return nil, fmt.Errorf("function %q is ambiguous; use one of: %s", query, strings.Join(options, ", "))
}

// ResolveOrLocation also accepts "file:line", picking the function that
// starts at or most recently before that line.
func (l *Lookup) ResolveOrLocation(query string) (*graph.Node, error) {
	node, err := l.ResolveSingle(query)
	if err == nil {
		return node, nil
	}
	file, line, ok := ParseLocationQuery(query)
	if !ok {
		return nil, err
	}
	if node := l.NodeAtLocation(file, line); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("function %q not found", query)
}

func (l *Lookup) NodeAtLocation(file string, line int) *graph.Node {
	var best *graph.Node
	for _, candidate := range l.Graph.NodesForFile(file) {
		if candidate.Line > line {
			break
		}
		best = candidate
	}
	return best
}

func ParseLocationQuery(query string) (file string, line int, ok bool) {
	idx := strings.LastIndex(query, ":")
	if idx <= 0 || idx >= len(query)-1 {
		return "", 0, false
	}
	file = strings.TrimSpace(query[:idx])
	lineRaw := strings.TrimSpace(query[idx+1:])
	if file == "" || lineRaw == "" {
		return "", 0, false
	}
	parsedLine, err := strconv.Atoi(lineRaw)
	if err != nil || parsedLine <= 0 {
		return "", 0, false
	}
	return file, parsedLine, true
}

func RecordFromNode(node *graph.Node) FunctionRecord {
	if node == nil {
		return FunctionRecord{}
	}
	return FunctionRecord{
		ID:       node.ID,
		Name:     node.Name,
		File:     node.File,
		Line:     node.Line,
		Origin:   string(node.Origin),
		External: node.External,
	}
}
