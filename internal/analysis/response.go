package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// ParseResponse validates a raw Summarizer payload. Missing keys take their
// defaults; present keys with the wrong shape make the whole response a
// format error.
func ParseResponse(raw []byte) (Response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Response{}, FormatError(errors.New("empty response"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Response{}, FormatError(fmt.Errorf("response is not a JSON object: %w", err))
	}
	if fields == nil {
		return Response{}, FormatError(errors.New("response is null"))
	}

	var resp Response
	if v, ok := present(fields, "origin"); ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return Response{}, FormatError(fmt.Errorf("origin must be a string: %w", err))
		}
		if strings.TrimSpace(s) != "" {
			origin, valid := ParseOrigin(s)
			if !valid {
				return Response{}, FormatError(fmt.Errorf("origin %q must be one of kernel|user|unknown", s))
			}
			resp.Origin = origin
		}
	}

	if v, ok := present(fields, "summary"); ok {
		if err := json.Unmarshal(v, &resp.Summary); err != nil {
			return Response{}, FormatError(fmt.Errorf("summary must be a string: %w", err))
		}
		resp.Summary = strings.TrimSpace(resp.Summary)
	}

	if v, ok := present(fields, "notes"); ok {
		if err := json.Unmarshal(v, &resp.Notes); err != nil {
			return Response{}, FormatError(fmt.Errorf("notes must be a string: %w", err))
		}
	}

	if v, ok := present(fields, "confidence"); ok {
		if err := json.Unmarshal(v, &resp.Confidence); err != nil {
			return Response{}, FormatError(fmt.Errorf("confidence must be a number: %w", err))
		}
		if resp.Confidence < 0 || resp.Confidence > 1 {
			return Response{}, FormatError(fmt.Errorf("confidence %v outside [0,1]", resp.Confidence))
		}
	}

	resp.Calls = []parser.CallEdge{}
	if v, ok := present(fields, "calls"); ok {
		calls, err := parseCalls(v)
		if err != nil {
			return Response{}, FormatError(err)
		}
		resp.Calls = calls
	}

	return resp, nil
}

func parseCalls(raw json.RawMessage) ([]parser.CallEdge, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("calls must be an array of objects: %w", err)
	}
	out := make([]parser.CallEdge, 0, len(items))
	for i, item := range items {
		var edge parser.CallEdge
		v, ok := present(item, "callee")
		if !ok {
			return nil, fmt.Errorf("calls[%d] is missing callee", i)
		}
		if err := json.Unmarshal(v, &edge.Callee); err != nil {
			return nil, fmt.Errorf("calls[%d].callee must be a string: %w", i, err)
		}
		edge.Callee = strings.TrimSpace(edge.Callee)
		if edge.Callee == "" {
			return nil, fmt.Errorf("calls[%d].callee is empty", i)
		}
		if v, ok := present(item, "condition"); ok {
			if err := json.Unmarshal(v, &edge.Condition); err != nil {
				return nil, fmt.Errorf("calls[%d].condition must be a string: %w", i, err)
			}
		}
		out = append(out, edge)
	}
	return out, nil
}

// present treats an explicit null like a missing key.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}
