package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/security"
)

const maxListEntries = 500

// defaultIgnorePatterns are skipped even without a .gitignore file.
var defaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"dist",
	"build",
	"vendor",
	"__pycache__",
	"target",
	".idea",
	".vscode",
	".DS_Store",
}

// NewListFilesTool lists files under a directory in the working
// directory, honoring the workspace .gitignore.
func NewListFilesTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "list_files",
		Description: "List files and directories under a path, recursively. Entries matching .gitignore are skipped.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Relative directory to list, defaults to the working directory root"},
				"recursive": {"type": "boolean", "description": "Descend into subdirectories, defaults to true"}
			},
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			rel := optionalString(args, "path", ".")
			recursive := optionalBool(args, "recursive", true)

			abs, err := validator.ValidatePath(rel)
			if err != nil {
				return engine.ToolResult{}, err
			}
			info, err := os.Stat(abs)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("stat %s: %w", rel, err)
			}
			if !info.IsDir() {
				return engine.ToolResult{}, fmt.Errorf("%s is not a directory", rel)
			}

			matcher := loadIgnoreMatcher(validator.WorkingDir())
			entries, truncated, err := collectEntries(abs, validator.WorkingDir(), matcher, recursive)
			if err != nil {
				return engine.ToolResult{}, err
			}

			res := OK(renderEntries(entries))
			if truncated {
				res.Truncated = true
				res.Metadata = map[string]string{
					"truncated": fmt.Sprintf("listing cut at %d entries", maxListEntries),
				}
			}
			return res, nil
		},
	}
}

// loadIgnoreMatcher combines the default skip list with the workspace
// root .gitignore, when present.
func loadIgnoreMatcher(root string) gitignore.IgnoreParser {
	patterns := append([]string{}, defaultIgnorePatterns...)

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	}
	return gitignore.CompileIgnoreLines(patterns...)
}

func collectEntries(dir, root string, matcher gitignore.IgnoreParser, recursive bool) ([]listEntry, bool, error) {
	var entries []listEntry
	truncated := false

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if path == dir {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if matcher.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if len(entries) >= maxListEntries {
			truncated = true
			return filepath.SkipAll
		}

		entry := listEntry{Path: rel, IsDir: d.IsDir()}
		if !d.IsDir() {
			if info, infoErr := d.Info(); infoErr == nil {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)

		if d.IsDir() && !recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("list %s: %w", dir, err)
	}
	return entries, truncated, nil
}
