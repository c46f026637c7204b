package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
)

// Document is the on-disk form of a graph.
type Document struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Document returns nodes sorted by ID and edges sorted by caller, keeping
// each caller's call order.
func (g *Graph) Document() Document {
	edges := append([]Edge(nil), g.Edges...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Caller < edges[j].Caller })
	if edges == nil {
		edges = []Edge{}
	}
	return Document{Nodes: g.SortedNodes(), Edges: edges}
}

// WriteFile writes the graph document to path and reports whether it changed.
func (g *Graph) WriteFile(path string) (bool, error) {
	data, err := fileutil.EncodeIndentedJSON(g.Document())
	if err != nil {
		return false, fmt.Errorf("failed to encode call graph: %w", err)
	}
	return fileutil.WriteIfChangedTracked(path, data)
}

// ReadFile loads a graph document and rebuilds the adjacency lists.
func ReadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	g := NewGraph()
	for _, node := range doc.Nodes {
		g.Nodes[node.ID] = node
		if !node.External {
			g.FileNodes[node.File] = append(g.FileNodes[node.File], node.ID)
		}
	}
	for _, e := range doc.Edges {
		src, ok := g.Nodes[e.Caller]
		if !ok {
			continue
		}
		dst, ok := g.Nodes[e.Callee]
		if !ok {
			continue
		}
		g.Edges = append(g.Edges, e)
		src.OutEdges = append(src.OutEdges, e.Callee)
		dst.InEdges = append(dst.InEdges, e.Caller)
	}
	g.normalizeEdges()
	return g, nil
}
