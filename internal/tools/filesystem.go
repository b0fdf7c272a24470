package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/security"
)

const maxReadBytes = 256 * 1024

// NewReadFileTool reads a file inside the working directory.
func NewReadFileTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "read_file",
		Description: "Read the contents of a file. The path is relative to the working directory.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Relative path of the file to read"}
			},
			"required": ["path"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			rel, err := stringArg(args, "path")
			if err != nil {
				return engine.ToolResult{}, err
			}
			abs, err := validator.ValidatePath(rel)
			if err != nil {
				return engine.ToolResult{}, err
			}

			info, err := os.Stat(abs)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("stat %s: %w", rel, err)
			}
			if info.IsDir() {
				return engine.ToolResult{}, fmt.Errorf("%s is a directory", rel)
			}
			if info.Size() > maxReadBytes {
				return engine.ToolResult{}, fmt.Errorf("%s is %d bytes, over the %d byte read limit", rel, info.Size(), maxReadBytes)
			}

			data, err := os.ReadFile(abs)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("read %s: %w", rel, err)
			}
			return OK(string(data)), nil
		},
	}
}

// NewWriteFileTool writes a file inside the working directory, creating
// parent directories as needed.
func NewWriteFileTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "write_file",
		Description: "Write content to a file, replacing it if it exists. Parent directories are created.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Relative path of the file to write"},
				"content": {"type": "string", "description": "Full content to write"}
			},
			"required": ["path", "content"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			rel, err := stringArg(args, "path")
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

			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return engine.ToolResult{}, fmt.Errorf("create parent of %s: %w", rel, err)
			}
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return engine.ToolResult{}, fmt.Errorf("write %s: %w", rel, err)
			}
			return OK(fmt.Sprintf("wrote %d bytes to %s", len(content), rel)), nil
		},
	}
}

// NewDeleteFileTool removes a single file inside the working directory.
// Directories are refused to keep the blast radius small.
func NewDeleteFileTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "delete_file",
		Description: "Delete a single file. Directories cannot be deleted with this tool.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Relative path of the file to delete"}
			},
			"required": ["path"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			rel, err := stringArg(args, "path")
			if err != nil {
				return engine.ToolResult{}, err
			}
			abs, err := validator.ValidatePath(rel)
			if err != nil {
				return engine.ToolResult{}, err
			}

			info, err := os.Lstat(abs)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("stat %s: %w", rel, err)
			}
			if info.IsDir() {
				return engine.ToolResult{}, fmt.Errorf("%s is a directory, refusing to delete", rel)
			}
			if err := os.Remove(abs); err != nil {
				return engine.ToolResult{}, fmt.Errorf("delete %s: %w", rel, err)
			}
			return OK(fmt.Sprintf("deleted %s", rel)), nil
		},
	}
}

// NewCreateDirectoryTool creates a directory inside the working
// directory.
func NewCreateDirectoryTool(validator *security.Validator) Tool {
	return Tool{
		Name:        "create_directory",
		Description: "Create a directory, including any missing parents.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Relative path of the directory to create"}
			},
			"required": ["path"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			rel, err := stringArg(args, "path")
			if err != nil {
				return engine.ToolResult{}, err
			}
			abs, err := validator.ValidatePath(rel)
			if err != nil {
				return engine.ToolResult{}, err
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return engine.ToolResult{}, fmt.Errorf("create %s: %w", rel, err)
			}
			return OK(fmt.Sprintf("created %s", rel)), nil
		},
	}
}

type listEntry struct {
	Path  string
	IsDir bool
	Size  int64
}

func renderEntries(entries []listEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&b, "%s/\n", e.Path)
		} else {
			fmt.Fprintf(&b, "%s (%d bytes)\n", e.Path, e.Size)
		}
	}
	if b.Len() == 0 {
		return "(empty)"
	}
	return b.String()
}
