package parser

// FunctionRecord is one C function definition located in a source file.
// Source holds the verbatim span from the header line through the matching
// closing brace.
type FunctionRecord struct {
	File   string `json:"file_path"`
	Name   string `json:"function_name"`
	Line   int    `json:"start_line"`
	Source string `json:"source_text"`
}

// Key returns the identity key used by the analysis cache.
func (r FunctionRecord) Key() string {
	return IdentityKey(r.File, r.Name, r.Line)
}

// Hash returns the content fingerprint of the record's source text.
func (r FunctionRecord) Hash() string {
	return Fingerprint(r.Source)
}

// Unconditional marks a call that executes on every path through its caller.
const Unconditional = "unconditional"

// CallEdge is a direct call from a function body together with the guard
// under which it runs.
type CallEdge struct {
	Callee    string `json:"callee"`
	Condition string `json:"condition"`
}

// FileFunctions holds all function records extracted from a single file
type FileFunctions struct {
	Path      string
	Language  string
	Functions []FunctionRecord
	Includes  []string // quoted #include targets as written
	Issues    []ParseIssue
	Hash      string // file content hash for incremental status checks
}

// ParseIssue captures non-fatal scanner warnings/errors encountered while scanning files.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Function string `json:"function,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// ParseResult holds the complete extraction result for a source tree
type ParseResult struct {
	Files    []FileFunctions
	RootPath string
	Issues   []ParseIssue
}

// Records flattens the per-file records in file order.
func (r *ParseResult) Records() []FunctionRecord {
	if r == nil {
		return nil
	}
	total := 0
	for _, file := range r.Files {
		total += len(file.Functions)
	}
	out := make([]FunctionRecord, 0, total)
	for _, file := range r.Files {
		out = append(out, file.Functions...)
	}
	return out
}
