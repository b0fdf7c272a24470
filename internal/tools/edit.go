package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/security"
)

// NewEditFileTool makes targeted changes to an existing file. Edit mode
// replaces a single old_text anchor that must match exactly once, so an
// ambiguous anchor can never rewrite the wrong spot; append mode adds to
// the end. Both return a diff of what changed. Whole-file writes belong
// to write_file.
func NewEditFileTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "edit_file",
		Description: "Make a targeted edit to an existing file. Mode 'edit' replaces old_text (which must appear exactly once) with content; mode 'append' adds content at the end. Returns a diff.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Relative path of the file to edit"},
				"mode": {"type": "string", "enum": ["edit", "append"], "description": "edit replaces old_text, append adds to the end"},
				"content": {"type": "string", "description": "Replacement text (edit) or text to add (append)"},
				"old_text": {"type": "string", "description": "Exact text to replace, required for edit mode; must be unique in the file"}
			},
			"required": ["path", "mode", "content"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			rel, err := stringArg(args, "path")
			if err != nil {
				return engine.ToolResult{}, err
			}
			mode, err := stringArg(args, "mode")
			if err != nil {
				return engine.ToolResult{}, err
			}
			content, err := stringArg(args, "content")
			if err != nil {
				return engine.ToolResult{}, err
			}
			abs, err := validator.ValidatePath(rel)
			if err != nil {
				return engine.ToolResult{}, err
			}

			info, err := os.Stat(abs)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("%s does not exist, use write_file to create it", rel)
			}
			if info.IsDir() {
				return engine.ToolResult{}, fmt.Errorf("%s is a directory", rel)
			}
			if info.Size() > maxReadBytes {
				return engine.ToolResult{}, fmt.Errorf("%s is %d bytes, over the %d byte edit limit", rel, info.Size(), maxReadBytes)
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("read %s: %w", rel, err)
			}
			old := string(data)

			var updated string
			switch mode {
			case "append":
				updated = old + content
			case "edit":
				oldText := optionalString(args, "old_text", "")
				if oldText == "" {
					return Errf("edit mode requires old_text; to add to the end of the file use mode=append"), nil
				}
				switch n := strings.Count(old, oldText); {
				case n == 0:
					return Errf("old_text not found in %s; use read_file to find a unique anchor", rel), nil
				case n > 1:
					return Errf("old_text matches %d locations in %s (must be unique); include more surrounding context", n, rel), nil
				}
				updated = strings.Replace(old, oldText, content, 1)
			default:
				return engine.ToolResult{}, fmt.Errorf("unknown mode %q", mode)
			}

			if err := os.WriteFile(abs, []byte(updated), info.Mode().Perm()); err != nil {
				return engine.ToolResult{}, fmt.Errorf("write %s: %w", rel, err)
			}
			return OK(fmt.Sprintf("edited %s:\n%s", rel, renderDiff(old, updated))), nil
		},
	}
}

// renderDiff produces a unified-style diff of the changed region. The
// two versions differ in exactly one contiguous span (a single
// replacement or an append), so the common prefix and suffix bound it.
func renderDiff(old, updated string) string {
	oldLines := strings.Split(old, "\n")
	newLines := strings.Split(updated, "\n")

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	removed := oldLines[prefix : len(oldLines)-suffix]
	added := newLines[prefix : len(newLines)-suffix]
	if len(removed) == 0 && len(added) == 0 {
		return "(no changes)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", prefix+1, len(removed), prefix+1, len(added))
	for _, line := range removed {
		fmt.Fprintf(&b, "-%s\n", line)
	}
	for _, line := range added {
		fmt.Fprintf(&b, "+%s\n", line)
	}
	return b.String()
}
