package languages

import "github.com/Zhao-zixi/Canalysis/internal/parser"

// NewDefaultRegistry creates a registry with all supported language parsers
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewCParser())

	return r
}
