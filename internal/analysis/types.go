// Package analysis turns function records into analysis results, either via
// an external Summarizer or via a deterministic static fallback.
package analysis

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// Origin says which side of the user/kernel boundary a function lives on.
type Origin string

const (
	OriginKernel  Origin = "kernel"
	OriginUser    Origin = "user"
	OriginUnknown Origin = "unknown"
	// OriginExternal marks call targets with no extracted definition.
	OriginExternal Origin = "external"
)

// ClassifyOrigin derives an origin hint from path components.
func ClassifyOrigin(path string) Origin {
	path = "/" + strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
	switch {
	case strings.Contains(path, "/kernel/"):
		return OriginKernel
	case strings.Contains(path, "/user/"):
		return OriginUser
	default:
		return OriginUnknown
	}
}

// ParseOrigin accepts the origins a Summarizer may report.
func ParseOrigin(raw string) (Origin, bool) {
	switch Origin(strings.ToLower(strings.TrimSpace(raw))) {
	case OriginKernel:
		return OriginKernel, true
	case OriginUser:
		return OriginUser, true
	case OriginUnknown:
		return OriginUnknown, true
	}
	return "", false
}

// FallbackNote tags results produced by the static analyzer.
const FallbackNote = "fallback_static_analysis"

// AnalysisResult is the enriched view of one function.
type AnalysisResult struct {
	File        string            `json:"file_path"`
	Name        string            `json:"function_name"`
	Line        int               `json:"start_line"`
	Source      string            `json:"source_text"`
	Origin      Origin            `json:"origin"`
	Summary     string            `json:"summary"`
	Calls       []parser.CallEdge `json:"calls"`
	Confidence  float64           `json:"confidence"`
	Notes       string            `json:"notes"`
	ContentHash string            `json:"content_hash,omitempty"`

	// Fallback is set when the static analyzer produced this result.
	Fallback bool `json:"-"`
	// Failure is the kind of Summarizer error behind a fallback, if any.
	Failure ErrorKind `json:"-"`
}

// Key returns the cache identity key of the result.
func (r AnalysisResult) Key() string {
	return parser.IdentityKey(r.File, r.Name, r.Line)
}

// Record returns the function record this result describes.
func (r AnalysisResult) Record() parser.FunctionRecord {
	return parser.FunctionRecord{File: r.File, Name: r.Name, Line: r.Line, Source: r.Source}
}

// Request is the context handed to a Summarizer for one function.
type Request struct {
	File       string `json:"file_path"`
	Name       string `json:"function_name"`
	Line       int    `json:"start_line"`
	Source     string `json:"source_text"`
	OriginHint Origin `json:"origin_hint"`
}

// NewRequest builds the Summarizer request for a record.
func NewRequest(rec parser.FunctionRecord) Request {
	return Request{
		File:       strings.ReplaceAll(rec.File, "\\", "/"),
		Name:       rec.Name,
		Line:       rec.Line,
		Source:     rec.Source,
		OriginHint: ClassifyOrigin(rec.File),
	}
}

// Record returns the function record the request was built from.
func (r Request) Record() parser.FunctionRecord {
	return parser.FunctionRecord{File: r.File, Name: r.Name, Line: r.Line, Source: r.Source}
}

// Response is a validated Summarizer answer. An empty Origin means the
// Summarizer did not report one.
type Response struct {
	Origin     Origin            `json:"origin"`
	Summary    string            `json:"summary"`
	Calls      []parser.CallEdge `json:"calls"`
	Confidence float64           `json:"confidence"`
	Notes      string            `json:"notes"`
}

// Summarizer produces a structured description of one function or fails.
// Implementations must be safe for concurrent use.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (Response, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, req Request) (Response, error)

func (f SummarizerFunc) Summarize(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
