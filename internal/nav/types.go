package nav

// FunctionRecord is the printable view of a graph node.
type FunctionRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Origin   string `json:"origin"`
	External bool   `json:"external,omitempty"`
}

// EdgeRecord is one neighbour together with the guard on the call.
type EdgeRecord struct {
	Function   FunctionRecord `json:"function"`
	Condition  string         `json:"condition"`
	Confidence string         `json:"confidence,omitempty"`
}

type TraceHop struct {
	Depth      int            `json:"depth"`
	From       FunctionRecord `json:"from"`
	To         FunctionRecord `json:"to"`
	Condition  string         `json:"condition"`
	Confidence string         `json:"confidence,omitempty"`
}

type PathStep struct {
	From      string `json:"from_id"`
	To        string `json:"to_id"`
	Condition string `json:"condition"`
}
