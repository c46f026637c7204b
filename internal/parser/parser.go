package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/ignore"
)

// LanguageParser defines the interface each source dialect must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "c")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse extracts function records from source code
	Parse(filename string, content []byte) (*FileFunctions, error)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[strings.ToLower(ext)] = lang
	}
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// SupportedExtensions returns all supported file extensions
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ParseFile parses a single file and returns its function records
func (r *Registry) ParseFile(path string) (*FileFunctions, error) {
	parser, ok := r.GetParserForFile(path)
	if !ok {
		return nil, nil // unsupported file type, skip silently
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	functions, err := parser.Parse(path, content)
	if err != nil {
		return nil, err
	}

	// Compute file hash for incremental status checks
	functions.Hash = HashContent(content)

	return functions, nil
}

// ParseDirectory recursively parses all supported files under root.
// Record paths are relative to root and use forward slashes. A root that is
// a single file is parsed on its own.
func (r *Registry) ParseDirectory(root string, ignorePaths []string) (*ParseResult, error) {
	ignoreMatcher := ignore.NewMatcher(ignorePaths)

	result := &ParseResult{
		RootPath: root,
		Files:    make([]FileFunctions, 0),
		Issues:   make([]ParseIssue, 0),
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			relPath := path
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				relPath = filepath.ToSlash(rel)
			}
			result.Issues = append(result.Issues, ParseIssue{
				File:     relPath,
				Severity: "warning",
				Message:  fmt.Sprintf("walk error: %v", err),
			})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." && !info.IsDir() {
			relPath = filepath.Base(path)
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if ignoreMatcher.SkipDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreMatcher.ShouldIgnore(relPath, false) {
			return nil
		}

		functions, err := r.ParseFile(path)
		if err != nil {
			lang := ""
			if langParser, ok := r.GetParserForFile(path); ok {
				lang = langParser.Language()
			}
			result.Issues = append(result.Issues, ParseIssue{
				File:     relPath,
				Language: lang,
				Severity: "error",
				Message:  err.Error(),
			})
			return nil
		}
		if functions != nil {
			functions.Path = relPath
			for i := range functions.Functions {
				functions.Functions[i].File = relPath
			}
			for _, issue := range functions.Issues {
				issue.File = relPath
				result.Issues = append(result.Issues, issue)
			}
			functions.Issues = nil
			result.Files = append(result.Files, *functions)
		}

		return nil
	})

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	sort.SliceStable(result.Issues, func(i, j int) bool {
		if result.Issues[i].File == result.Issues[j].File {
			if result.Issues[i].Line != result.Issues[j].Line {
				return result.Issues[i].Line < result.Issues[j].Line
			}
			return result.Issues[i].Message < result.Issues[j].Message
		}
		return result.Issues[i].File < result.Issues[j].File
	})

	return result, err
}

// HashContent returns a short sha256 hash of file content.
func HashContent(content []byte) string {
	h := sha256.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:16] // short hash
}
