package llm

import (
	"bytes"
	"regexp"
)

var reFence = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \\t]*\\r?\\n(.*?)\\r?\\n?```$")

// StripCodeFence removes a markdown code fence wrapped around a reply.
// Anything else is returned trimmed but otherwise untouched.
func StripCodeFence(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if m := reFence.FindSubmatch(raw); m != nil {
		return bytes.TrimSpace(m[1])
	}
	return raw
}
