package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/security"
)

func newToolEnv(t *testing.T) (*Registry, *security.Validator, string) {
	t.Helper()
	dir := t.TempDir()
	v, err := security.NewValidator(security.ModeFullAutonomous, dir)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	r := NewRegistry(0)
	r.Register(NewReadFileTool(v))
	r.Register(NewWriteFileTool(v))
	r.Register(NewListFilesTool(v))
	r.Register(NewDeleteFileTool(v))
	r.Register(NewCreateDirectoryTool(v))
	return r, v, dir
}

func dispatch(t *testing.T, r *Registry, name string, args map[string]any) engine.ToolResult {
	t.Helper()
	return r.Dispatch(context.Background(), engine.ToolCall{ID: "c", Name: name, Args: args})
}

func TestWriteThenReadFile(t *testing.T) {
	r, _, dir := newToolEnv(t)

	res := dispatch(t, r, "write_file", map[string]any{
		"path":    "notes/todo.txt",
		"content": "ship it",
	})
	if !res.Success {
		t.Fatalf("write_file = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes", "todo.txt")); err != nil {
		t.Fatalf("written file missing: %v", err)
	}

	res = dispatch(t, r, "read_file", map[string]any{"path": "notes/todo.txt"})
	if !res.Success || res.Output != "ship it" {
		t.Errorf("read_file = %+v, want content back", res)
	}
}

func TestReadFile_Failures(t *testing.T) {
	r, _, dir := newToolEnv(t)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "nope.txt"},
		{"directory", "sub"},
		{"escape", "../outside.txt"},
		{"absolute", "/etc/hostname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := dispatch(t, r, "read_file", map[string]any{"path": tt.path})
			if res.Success {
				t.Errorf("read_file(%q) succeeded, want failure", tt.path)
			}
		})
	}
}

func TestDeleteFile(t *testing.T) {
	r, _, dir := newToolEnv(t)
	target := filepath.Join(dir, "junk.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := dispatch(t, r, "delete_file", map[string]any{"path": "junk.txt"})
	if !res.Success {
		t.Fatalf("delete_file = %+v", res)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}

	// directories are refused
	if err := os.Mkdir(filepath.Join(dir, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	res = dispatch(t, r, "delete_file", map[string]any{"path": "keep"})
	if res.Success {
		t.Error("delete_file on a directory succeeded, want refusal")
	}
}

func TestCreateDirectory(t *testing.T) {
	r, _, dir := newToolEnv(t)

	res := dispatch(t, r, "create_directory", map[string]any{"path": "a/b/c"})
	if !res.Success {
		t.Fatalf("create_directory = %+v", res)
	}
	info, err := os.Stat(filepath.Join(dir, "a", "b", "c"))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestListFiles_HonorsGitignore(t *testing.T) {
	r, _, dir := newToolEnv(t)

	files := map[string]string{
		".gitignore":        "*.log\n",
		"main.go":           "package main",
		"debug.log":         "noise",
		"src/util.go":       "package src",
		"node_modules/x.js": "junk",
	}
	for path, content := range files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res := dispatch(t, r, "list_files", map[string]any{})
	if !res.Success {
		t.Fatalf("list_files = %+v", res)
	}
	for _, want := range []string{"main.go", "src/util.go"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("listing missing %q:\n%s", want, res.Output)
		}
	}
	for _, skip := range []string{"debug.log", "node_modules"} {
		if strings.Contains(res.Output, skip) {
			t.Errorf("listing should skip %q:\n%s", skip, res.Output)
		}
	}
}

func TestListFiles_NonRecursive(t *testing.T) {
	r, _, dir := newToolEnv(t)
	if err := os.MkdirAll(filepath.Join(dir, "deep", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "deep", "nested", "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := dispatch(t, r, "list_files", map[string]any{"recursive": false})
	if !res.Success {
		t.Fatalf("list_files = %+v", res)
	}
	if strings.Contains(res.Output, "nested") {
		t.Errorf("non-recursive listing descended into subdirectories:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, "deep/") {
		t.Errorf("top level directory missing from listing:\n%s", res.Output)
	}
}
