package parser

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DecodeSource turns raw file bytes into text. A leading byte order mark is
// dropped and invalid UTF-8 sequences become U+FFFD instead of failing.
func DecodeSource(content []byte) string {
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "\uFFFD")
	}
	return string(decoded)
}
