package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/security"
)

const (
	maxGrepMatches  = 50
	maxGrepFileSize = 512 * 1024
	maxGrepLineLen  = 250
)

// searchMatch is one grep hit with surrounding context lines.
type searchMatch struct {
	File          string
	LineNumber    int // 1-based
	Line          string
	ContextBefore []string
	ContextAfter  []string
}

// NewGrepTool searches file contents with a regular expression, walking
// the tree with the same ignore rules as list_files. Results paginate
// through the offset argument so large hit counts stay readable.
func NewGrepTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "grep",
		Description: "Search file contents with a regular expression. Shows matching lines with context; gitignored files are skipped.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"pattern": {"type": "string", "description": "Regular expression to search for"},
				"path": {"type": "string", "description": "Relative directory to search, defaults to the working directory root"},
				"include": {"type": "string", "description": "Only search files whose name matches this glob, e.g. '*.go'"},
				"case_sensitive": {"type": "boolean", "description": "Match case exactly, defaults to false"},
				"context_lines": {"type": "integer", "minimum": 0, "maximum": 10, "description": "Lines of context around each match, defaults to 2"},
				"offset": {"type": "integer", "minimum": 0, "description": "Skip this many matches, for pagination"}
			},
			"required": ["pattern"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			pattern, err := stringArg(args, "pattern")
			if err != nil {
				return engine.ToolResult{}, err
			}
			rel := optionalString(args, "path", ".")
			include := optionalString(args, "include", "")
			caseSensitive := optionalBool(args, "case_sensitive", false)
			contextLines := optionalInt(args, "context_lines", 2)
			offset := optionalInt(args, "offset", 0)

			if !caseSensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("invalid pattern: %w", err)
			}

			abs, err := validator.ValidatePath(rel)
			if err != nil {
				return engine.ToolResult{}, err
			}

			matches, total, err := searchTree(abs, validator.WorkingDir(), re, include, contextLines, offset)
			if err != nil {
				return engine.ToolResult{}, err
			}
			if total == 0 {
				return OK("no matches"), nil
			}

			res := OK(renderMatches(matches, total, offset))
			res.Metadata = map[string]string{
				"total_matches": fmt.Sprintf("%d", total),
				"shown":         fmt.Sprintf("%d", len(matches)),
			}
			if offset+len(matches) < total {
				res.Truncated = true
				res.Metadata["truncated"] = fmt.Sprintf("showing %d of %d matches, pass offset=%d for more", len(matches), total, offset+len(matches))
			}
			return res, nil
		},
	}
}

// searchTree walks dir collecting up to maxGrepMatches matches starting
// at offset, and counts the total regardless so pagination is honest.
func searchTree(dir, root string, re *regexp.Regexp, include string, contextLines, offset int) ([]searchMatch, int, error) {
	matcher := loadIgnoreMatcher(root)
	var matches []searchMatch
	total := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if path != dir && matcher.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if include != "" {
			if ok, _ := filepath.Match(include, d.Name()); !ok {
				return nil
			}
		}
		if info, infoErr := d.Info(); infoErr != nil || info.Size() > maxGrepFileSize {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil || !utf8Text(data) {
			return nil
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			total++
			if total <= offset || len(matches) >= maxGrepMatches {
				continue
			}
			m := searchMatch{File: rel, LineNumber: i + 1, Line: line}
			for j := max(0, i-contextLines); j < i; j++ {
				m.ContextBefore = append(m.ContextBefore, lines[j])
			}
			for j := i + 1; j <= i+contextLines && j < len(lines); j++ {
				m.ContextAfter = append(m.ContextAfter, lines[j])
			}
			matches = append(matches, m)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", dir, err)
	}
	return matches, total, nil
}

// utf8Text reports whether data looks like text rather than a binary
// blob. A NUL byte in the first kilobyte is the classic tell.
func utf8Text(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	for _, b := range head {
		if b == 0 {
			return false
		}
	}
	return true
}

func renderMatches(matches []searchMatch, total, offset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d matches\n", total)
	for _, m := range matches {
		fmt.Fprintf(&b, "\n%s:%d\n", m.File, m.LineNumber)
		start := m.LineNumber - len(m.ContextBefore)
		for i, line := range m.ContextBefore {
			fmt.Fprintf(&b, "  %d | %s\n", start+i, clipLine(line))
		}
		fmt.Fprintf(&b, "> %d | %s\n", m.LineNumber, clipLine(m.Line))
		for i, line := range m.ContextAfter {
			fmt.Fprintf(&b, "  %d | %s\n", m.LineNumber+1+i, clipLine(line))
		}
	}
	return b.String()
}

func clipLine(line string) string {
	runes := []rune(line)
	if len(runes) <= maxGrepLineLen {
		return line
	}
	return string(runes[:maxGrepLineLen]) + "..."
}
