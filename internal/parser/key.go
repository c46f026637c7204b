package parser

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// IdentityKey returns the stable cache key for a function: file:name:line.
// Windows separators are normalized so keys survive a checkout on another OS.
func IdentityKey(file, name string, line int) string {
	file = strings.ReplaceAll(file, "\\", "/")
	return file + ":" + name + ":" + strconv.Itoa(line)
}

// SplitIdentityKey reverses IdentityKey. The file part may itself contain ':'.
func SplitIdentityKey(key string) (file, name string, line int, ok bool) {
	lineSep := strings.LastIndex(key, ":")
	if lineSep <= 0 {
		return "", "", 0, false
	}
	line, err := strconv.Atoi(key[lineSep+1:])
	if err != nil {
		return "", "", 0, false
	}
	rest := key[:lineSep]
	nameSep := strings.LastIndex(rest, ":")
	if nameSep < 0 {
		return "", "", 0, false
	}
	return rest[:nameSep], rest[nameSep+1:], line, true
}

// Fingerprint returns a short deterministic hash of source text.
func Fingerprint(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}
