package languages

import (
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// CParser implements the heuristic scanner for C sources and headers.
type CParser struct{}

// NewCParser creates a new C parser
func NewCParser() *CParser {
	return &CParser{}
}

func (c *CParser) Language() string {
	return "c"
}

func (c *CParser) Extensions() []string {
	return []string{".c", ".h"}
}

func (c *CParser) Parse(filename string, content []byte) (*parser.FileFunctions, error) {
	text := parser.DecodeSource(content)
	functions, issues := parser.ExtractWithIssues(filename, text)
	if functions == nil {
		functions = make([]parser.FunctionRecord, 0)
	}
	return &parser.FileFunctions{
		Path:      filename,
		Language:  "c",
		Functions: functions,
		Includes:  parser.QuotedIncludes(text),
		Issues:    issues,
	}, nil
}
