package nav

import (
	"sort"

	"github.com/Zhao-zixi/Canalysis/internal/graph"
)

// Callers lists one record per guarded edge into node.
func (l *Lookup) Callers(node *graph.Node) []EdgeRecord {
	out := make([]EdgeRecord, 0, len(node.InEdges))
	for _, e := range l.Graph.EdgesTo(node.ID) {
		caller := l.Graph.Nodes[e.Caller]
		if caller == nil {
			continue
		}
		out = append(out, EdgeRecord{
			Function:   RecordFromNode(caller),
			Condition:  e.Condition,
			Confidence: e.Confidence,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Function.ID < out[j].Function.ID
	})
	return out
}

// Callees lists one record per guarded edge out of node, in call order.
func (l *Lookup) Callees(node *graph.Node) []EdgeRecord {
	out := make([]EdgeRecord, 0, len(node.OutEdges))
	for _, e := range l.Graph.EdgesFrom(node.ID) {
		callee := l.Graph.Nodes[e.Callee]
		if callee == nil {
			continue
		}
		out = append(out, EdgeRecord{
			Function:   RecordFromNode(callee),
			Condition:  e.Condition,
			Confidence: e.Confidence,
		})
	}
	return out
}

// Trace walks outgoing edges breadth-first up to depth hops.
func (l *Lookup) Trace(start *graph.Node, depth int) []TraceHop {
	type queueItem struct {
		id    string
		depth int
	}
	queue := []queueItem{{id: start.ID, depth: 0}}
	seenDepth := map[string]int{start.ID: 0}
	hops := make([]TraceHop, 0)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= depth {
			continue
		}
		fromNode := l.Graph.Nodes[current.id]
		if fromNode == nil {
			continue
		}

		for _, e := range l.Graph.EdgesFrom(current.id) {
			toNode := l.Graph.Nodes[e.Callee]
			if toNode == nil {
				continue
			}
			nextDepth := current.depth + 1
			hops = append(hops, TraceHop{
				Depth:      nextDepth,
				From:       RecordFromNode(fromNode),
				To:         RecordFromNode(toNode),
				Condition:  e.Condition,
				Confidence: e.Confidence,
			})
			if previousDepth, exists := seenDepth[e.Callee]; !exists || nextDepth < previousDepth {
				seenDepth[e.Callee] = nextDepth
				queue = append(queue, queueItem{id: e.Callee, depth: nextDepth})
			}
		}
	}

	sort.SliceStable(hops, func(i, j int) bool {
		if hops[i].Depth != hops[j].Depth {
			return hops[i].Depth < hops[j].Depth
		}
		if hops[i].From.ID != hops[j].From.ID {
			return hops[i].From.ID < hops[j].From.ID
		}
		return hops[i].To.ID < hops[j].To.ID
	})
	return hops
}

// ShortestPath returns node IDs from fromID to toID, or nil.
func (l *Lookup) ShortestPath(fromID, toID string) []string {
	if fromID == toID {
		return []string{fromID}
	}

	queue := []string{fromID}
	visited := map[string]bool{fromID: true}
	parent := map[string]string{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := l.Graph.Nodes[current]
		if node == nil {
			continue
		}
		for _, nextID := range node.OutEdges {
			if visited[nextID] {
				continue
			}
			visited[nextID] = true
			parent[nextID] = current
			if nextID == toID {
				return ReconstructPath(parent, fromID, toID)
			}
			queue = append(queue, nextID)
		}
	}
	return nil
}

// PathSteps pairs consecutive path IDs with the first guard on that edge.
func (l *Lookup) PathSteps(ids []string) []PathStep {
	steps := make([]PathStep, 0, len(ids))
	for i := 1; i < len(ids); i++ {
		step := PathStep{From: ids[i-1], To: ids[i]}
		for _, e := range l.Graph.EdgesFrom(ids[i-1]) {
			if e.Callee == ids[i] {
				step.Condition = e.Condition
				break
			}
		}
		steps = append(steps, step)
	}
	return steps
}

func ReconstructPath(parent map[string]string, fromID, toID string) []string {
	out := []string{toID}
	for current := toID; current != fromID; {
		prev, ok := parent[current]
		if !ok {
			return nil
		}
		out = append(out, prev)
		current = prev
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
