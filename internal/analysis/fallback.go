package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/callsite"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

type signal struct {
	tag     string
	needles []string
	counted bool // contributes to confidence
	user    bool // only applies to user-space code
}

var signals = []signal{
	{tag: "reads data", needles: []string{"read(", "copy_to_user(", "kfifo_out("}, counted: true},
	{tag: "writes data", needles: []string{"write(", "copy_from_user(", "kfifo_in("}, counted: true},
	{tag: "handles ioctl", needles: []string{"ioctl(", "unlocked_ioctl"}, counted: true},
	{tag: "initializes device", needles: []string{"alloc_chrdev_region(", "cdev_add(", "class_create(", "device_create("}, counted: true},
	{tag: "tears down device", needles: []string{"unregister_chrdev_region(", "device_destroy(", "class_destroy(", "cdev_del("}, counted: true},
	{tag: "opens file descriptor", needles: []string{"open("}, user: true},
	{tag: "closes file descriptor", needles: []string{"close("}, user: true},
}

const helperSummary = "helper function"

// StaticAnalyze describes a function without a Summarizer: calls come from
// the call-site extractor and the summary from well-known I/O and device
// lifecycle calls.
func StaticAnalyze(rec parser.FunctionRecord) Response {
	return staticAnalyze(rec, callsite.ScopeNearest)
}

func staticAnalyze(rec parser.FunctionRecord, guards callsite.Scope) Response {
	origin := ClassifyOrigin(rec.File)
	calls := callsite.ExtractScoped(rec.Source, rec.Name, guards)

	tags := make([]string, 0, len(signals))
	categories := 0
	for _, s := range signals {
		if s.user && origin != OriginUser {
			continue
		}
		if !s.matches(rec) {
			continue
		}
		tags = append(tags, s.tag)
		if s.counted {
			categories++
		}
	}
	if len(tags) == 0 {
		tags = append(tags, helperSummary)
	}

	confidence := 0.4 + 0.1*float64(categories)
	if len(calls) > 0 {
		confidence += 0.1
	}
	confidence = math.Round(math.Min(0.9, confidence)*100) / 100

	return Response{
		Origin:     origin,
		Summary:    strings.Join(tags, ", "),
		Calls:      calls,
		Confidence: confidence,
		Notes:      FallbackNote,
	}
}

func (s signal) matches(rec parser.FunctionRecord) bool {
	for _, needle := range s.needles {
		if strings.Contains(rec.Source, needle) {
			return true
		}
	}
	// driver convention: ioctl entry points carry it in their name
	return s.tag == "handles ioctl" && strings.Contains(strings.ToLower(rec.Name), "ioctl")
}

// Fallback builds the static result for rec. A non-nil cause is recorded in
// the notes with its kind and message.
func Fallback(rec parser.FunctionRecord, cause error) AnalysisResult {
	return fallback(rec, cause, callsite.ScopeNearest)
}

func fallback(rec parser.FunctionRecord, cause error, guards callsite.Scope) AnalysisResult {
	resp := staticAnalyze(rec, guards)
	se := Classify(cause)
	if se != nil {
		resp.Notes = fmt.Sprintf("llm_call_failed: %s: %v; %s", se.Kind, se.Err, resp.Notes)
	}
	result := Merge(rec, resp)
	result.Fallback = true
	if se != nil {
		result.Failure = se.Kind
	}
	return result
}
