// Package graph builds the call graph over analysis results.
package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// ExternalPrefix starts the ID of a node with no extracted definition.
const ExternalPrefix = "external:"

// Edge confidence values.
const (
	Resolved  = "resolved"  // unique definition in the caller's file
	Heuristic = "heuristic" // unique definition elsewhere
	External  = "external"  // no definition, or an ambiguous name
)

// Node is a function definition or an external call target.
type Node struct {
	ID       string          `json:"id"` // identity key or ExternalPrefix+name
	Name     string          `json:"name"`
	File     string          `json:"file,omitempty"`
	Line     int             `json:"line,omitempty"`
	Origin   analysis.Origin `json:"origin"`
	Summary  string          `json:"summary,omitempty"`
	External bool            `json:"external,omitempty"`
	PageRank float64         `json:"pagerank"`

	OutEdges []string `json:"-"` // distinct callee IDs
	InEdges  []string `json:"-"` // distinct caller IDs
}

// Edge is one guarded call. A caller may reach the same callee under
// several conditions.
type Edge struct {
	Caller     string `json:"caller"`
	Callee     string `json:"callee"`
	CalleeName string `json:"callee_name"`
	Condition  string `json:"condition"`
	Confidence string `json:"confidence"`
}

// Graph is the call graph of one analysis run.
type Graph struct {
	Nodes     map[string]*Node    // ID -> Node
	FileNodes map[string][]string // file -> IDs of functions defined there
	Edges     []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*Node),
		FileNodes: make(map[string][]string),
	}
}

type lookups struct {
	global   map[string][]string
	byFile   map[string]map[string][]string
	byModule map[string]map[string][]string
}

// Build constructs the graph and ranks its nodes.
func Build(results []analysis.AnalysisResult) *Graph {
	g := NewGraph()
	l := lookups{
		global:   make(map[string][]string),
		byFile:   make(map[string]map[string][]string),
		byModule: make(map[string]map[string][]string),
	}

	// First pass: one node per definition
	for _, r := range results {
		id := r.Key()
		g.Nodes[id] = &Node{
			ID:      id,
			Name:    r.Name,
			File:    r.File,
			Line:    r.Line,
			Origin:  r.Origin,
			Summary: r.Summary,
		}
		g.FileNodes[r.File] = append(g.FileNodes[r.File], id)
		l.add(r.File, r.Name, id)
	}
	l.normalize()

	// Second pass: edges
	for _, r := range results {
		srcID := r.Key()
		src := g.Nodes[srcID]
		for _, call := range r.Calls {
			targetID, confidence := l.resolve(r.File, call.Callee)
			if targetID == "" {
				targetID = ExternalPrefix + call.Callee
				confidence = External
				if _, ok := g.Nodes[targetID]; !ok {
					g.Nodes[targetID] = &Node{
						ID:       targetID,
						Name:     call.Callee,
						Origin:   analysis.OriginExternal,
						External: true,
					}
				}
			}
			if targetID == srcID {
				continue
			}
			condition := call.Condition
			if condition == "" {
				condition = parser.Unconditional
			}
			g.Edges = append(g.Edges, Edge{
				Caller:     srcID,
				Callee:     targetID,
				CalleeName: call.Callee,
				Condition:  condition,
				Confidence: confidence,
			})
			src.OutEdges = append(src.OutEdges, targetID)
			g.Nodes[targetID].InEdges = append(g.Nodes[targetID].InEdges, srcID)
		}
	}

	g.normalizeEdges()
	g.calculatePageRank(20, 0.85)
	return g
}

func (l lookups) add(file, name, id string) {
	if l.byFile[file] == nil {
		l.byFile[file] = make(map[string][]string)
	}
	module := moduleName(file)
	if l.byModule[module] == nil {
		l.byModule[module] = make(map[string][]string)
	}
	l.global[name] = append(l.global[name], id)
	l.byFile[file][name] = append(l.byFile[file][name], id)
	l.byModule[module][name] = append(l.byModule[module][name], id)
}

func (l lookups) normalize() {
	for name, ids := range l.global {
		l.global[name] = dedupeAndSort(ids)
	}
	for _, byName := range l.byFile {
		for name, ids := range byName {
			byName[name] = dedupeAndSort(ids)
		}
	}
	for _, byName := range l.byModule {
		for name, ids := range byName {
			byName[name] = dedupeAndSort(ids)
		}
	}
}

// resolve prefers a definition in the same file, then one in the same
// top-level directory, then a unique one anywhere. An empty ID means the
// callee stays external.
func (l lookups) resolve(file, callee string) (string, string) {
	callee = strings.TrimSpace(callee)
	if callee == "" {
		return "", ""
	}
	if ids := l.byFile[file][callee]; len(ids) > 0 {
		return chooseUnique(ids, Resolved)
	}
	if ids := l.byModule[moduleName(file)][callee]; len(ids) > 0 {
		return chooseUnique(ids, Heuristic)
	}
	if ids := l.global[callee]; len(ids) > 0 {
		return chooseUnique(ids, Heuristic)
	}
	return "", ""
}

func chooseUnique(ids []string, confidence string) (string, string) {
	if len(ids) == 1 {
		return ids[0], confidence
	}
	return "", ""
}

// calculatePageRank computes importance scores for all nodes
func (g *Graph) calculatePageRank(iterations int, dampingFactor float64) {
	n := float64(len(g.Nodes))
	if n == 0 {
		return
	}

	for _, node := range g.Nodes {
		node.PageRank = 1.0 / n
	}

	for i := 0; i < iterations; i++ {
		newRanks := make(map[string]float64, len(g.Nodes))
		for id, node := range g.Nodes {
			rank := (1 - dampingFactor) / n
			for _, inID := range node.InEdges {
				if inNode, ok := g.Nodes[inID]; ok {
					if outDegree := float64(len(inNode.OutEdges)); outDegree > 0 {
						rank += dampingFactor * (inNode.PageRank / outDegree)
					}
				}
			}
			newRanks[id] = rank
		}
		for id, rank := range newRanks {
			g.Nodes[id].PageRank = rank
		}
	}
}

// TopNodes returns the most important nodes by PageRank
func (g *Graph) TopNodes(n int) []*Node {
	nodes := g.SortedNodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].PageRank > nodes[j].PageRank
	})
	if n > len(nodes) {
		n = len(nodes)
	}
	return nodes[:n]
}

// SortedNodes returns every node ordered by ID.
func (g *Graph) SortedNodes() []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// EdgesFrom returns the edges leaving id in call order.
func (g *Graph) EdgesFrom(id string) []Edge {
	out := make([]Edge, 0)
	for _, e := range g.Edges {
		if e.Caller == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns the edges entering id.
func (g *Graph) EdgesTo(id string) []Edge {
	out := make([]Edge, 0)
	for _, e := range g.Edges {
		if e.Callee == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) normalizeEdges() {
	for _, node := range g.Nodes {
		node.OutEdges = dedupeAndSort(node.OutEdges)
		node.InEdges = dedupeAndSort(node.InEdges)
	}
}

func dedupeAndSort(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := fileutil.DedupeStrings(values)
	sort.Strings(out)
	return out
}

// NodesForFile returns the functions defined in file, sorted by line.
func (g *Graph) NodesForFile(file string) []*Node {
	ids, ok := g.FileNodes[file]
	if !ok {
		return nil
	}
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := g.Nodes[id]; ok {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Line == nodes[j].Line {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].Line < nodes[j].Line
	})
	return nodes
}

// Files returns all files that define at least one function.
func (g *Graph) Files() []string {
	files := make([]string, 0, len(g.FileNodes))
	for file := range g.FileNodes {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// moduleName is the first path component, which separates trees such as
// kernel/ and user/.
func moduleName(file string) string {
	dir := path.Dir(file)
	if dir == "." {
		return "root"
	}
	return strings.Split(dir, "/")[0]
}
