package languages

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// Definition is a function definition found by the C grammar.
type Definition struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// SyntaxIndex lists function definitions using the tree-sitter C grammar.
// It is the reference the heuristic scanner is audited against.
type SyntaxIndex struct {
	parser *sitter.Parser
}

func NewSyntaxIndex() *SyntaxIndex {
	p := sitter.NewParser()
	p.SetLanguage(c.GetLanguage())
	return &SyntaxIndex{parser: p}
}

// Definitions returns every function_definition in content, ordered by line.
func (s *SyntaxIndex) Definitions(ctx context.Context, content []byte) ([]Definition, error) {
	tree, err := s.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	defs := make([]Definition, 0)
	collectDefinitions(tree.RootNode(), content, &defs)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Line < defs[j].Line })
	return defs, nil
}

func collectDefinitions(node *sitter.Node, content []byte, out *[]Definition) {
	if node == nil {
		return
	}
	if node.Type() == "function_definition" {
		if name := declaratorName(node.ChildByFieldName("declarator"), content); name != "" {
			*out = append(*out, Definition{
				Name: name,
				Line: int(node.StartPoint().Row) + 1,
			})
		}
		// nested definitions are a GNU extension; not worth descending
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectDefinitions(node.NamedChild(i), content, out)
	}
}

// declaratorName unwraps pointer/parenthesized declarators down to the
// function's identifier.
func declaratorName(node *sitter.Node, content []byte) string {
	for node != nil {
		switch node.Type() {
		case "identifier", "field_identifier":
			return node.Content(content)
		case "function_declarator", "pointer_declarator", "attributed_declarator":
			node = node.ChildByFieldName("declarator")
		case "parenthesized_declarator":
			node = node.NamedChild(0)
		default:
			return ""
		}
	}
	return ""
}

// AuditResult compares heuristic detection with the grammar for one file.
type AuditResult struct {
	File     string       `json:"file"`
	Matched  int          `json:"matched"`
	Missed   []Definition `json:"missed,omitempty"`   // found by the grammar only
	Spurious []Definition `json:"spurious,omitempty"` // found by the scanner only
}

// Clean reports whether both detectors agree.
func (a AuditResult) Clean() bool {
	return len(a.Missed) == 0 && len(a.Spurious) == 0
}

// Compare matches heuristic and grammar definitions by name and line.
func Compare(file string, heuristic, grammar []Definition) AuditResult {
	result := AuditResult{File: file}
	seen := make(map[Definition]int, len(heuristic))
	for _, d := range heuristic {
		seen[d]++
	}
	for _, d := range grammar {
		if seen[d] > 0 {
			seen[d]--
			result.Matched++
			continue
		}
		result.Missed = append(result.Missed, d)
	}
	for _, d := range heuristic {
		if seen[d] > 0 {
			seen[d]--
			result.Spurious = append(result.Spurious, d)
		}
	}
	return result
}
