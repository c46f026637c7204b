package llm

import (
	"fmt"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
)

// ResponseKeys are the keys the model is asked to return.
var ResponseKeys = []string{
	"file_path",
	"function_name",
	"start_line",
	"source_text",
	"origin",
	"summary",
	"calls",
	"confidence",
	"notes",
}

// SystemPrompt pins the model to a single JSON object.
func SystemPrompt() string {
	return "You are a strict JSON generator. Return only a single JSON object with keys: " +
		strings.Join(ResponseKeys, ",") +
		". Do not include any markdown or explanations outside JSON."
}

// BuildUserPrompt renders the per-function instructions and source.
func BuildUserPrompt(req analysis.Request) string {
	var b strings.Builder
	b.WriteString("Analyze the following C function and produce strictly valid JSON. Requirements:\n")
	b.WriteString("1) Only list direct, reachable calls within the function body; exclude self-calls.\n")
	b.WriteString("2) For each call, give its entry condition as the expression INSIDE the if parentheses, without 'if' and without the outer parentheses. Use 'unconditional' if the call always executes.\n")
	b.WriteString("3) When an early-return guard such as 'if (len == 0) return 0;' precedes a call, the call's condition is the negated expression (e.g. 'len != 0').\n")
	b.WriteString("4) origin is one of kernel|user|unknown; confidence is a number in [0,1].\n")
	b.WriteString("5) Prefer concise expressions; avoid redundant text.\n")
	fmt.Fprintf(&b, "Origin hint: %s. File: %s. Name: %s. Line: %d.\n", req.OriginHint, req.File, req.Name, req.Line)
	b.WriteString("Function content begins:\n")
	b.WriteString(req.Source)
	b.WriteString("\nFunction content ends.")
	return b.String()
}

// BuildPrompt renders both prompt halves for req.
func BuildPrompt(req analysis.Request) Prompt {
	return Prompt{System: SystemPrompt(), User: BuildUserPrompt(req), Request: req}
}
