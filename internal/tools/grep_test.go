package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGrep_FindsMatchesWithContext(t *testing.T) {
	r, v, dir := newToolEnv(t)
	r.Register(NewGrepTool(v))
	writeTestFile(t, dir, "main.go", "package main\n\nfunc main() {\n\tneedle()\n}\n")

	res := dispatch(t, r, "grep", map[string]any{"pattern": "needle"})
	if !res.Success {
		t.Fatalf("grep = %+v", res)
	}
	if !strings.Contains(res.Output, "main.go:4") {
		t.Errorf("Output missing file:line header:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, "> 4 | \tneedle()") {
		t.Errorf("Output missing the match line:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, "  3 | func main() {") {
		t.Errorf("Output missing context before:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, "  5 | }") {
		t.Errorf("Output missing context after:\n%s", res.Output)
	}
}

func TestGrep_CaseInsensitiveByDefault(t *testing.T) {
	r, v, dir := newToolEnv(t)
	r.Register(NewGrepTool(v))
	writeTestFile(t, dir, "doc.txt", "The Needle in the haystack\n")

	res := dispatch(t, r, "grep", map[string]any{"pattern": "needle"})
	if !res.Success || !strings.Contains(res.Output, "doc.txt:1") {
		t.Errorf("grep = %+v, want a case-insensitive hit", res)
	}

	res = dispatch(t, r, "grep", map[string]any{"pattern": "needle", "case_sensitive": true})
	if !res.Success || res.Output != "no matches" {
		t.Errorf("case-sensitive grep = %+v, want no matches", res)
	}
}

func TestGrep_HonorsGitignoreAndInclude(t *testing.T) {
	r, v, dir := newToolEnv(t)
	r.Register(NewGrepTool(v))
	writeTestFile(t, dir, ".gitignore", "logs/\n")
	writeTestFile(t, dir, "keep.go", "needle\n")
	writeTestFile(t, dir, "keep.txt", "needle\n")
	writeTestFile(t, dir, "logs/skipped.go", "needle\n")

	res := dispatch(t, r, "grep", map[string]any{"pattern": "needle"})
	if strings.Contains(res.Output, "logs/skipped.go") {
		t.Errorf("ignored file searched:\n%s", res.Output)
	}

	res = dispatch(t, r, "grep", map[string]any{"pattern": "needle", "include": "*.go"})
	if !strings.Contains(res.Output, "keep.go") || strings.Contains(res.Output, "keep.txt") {
		t.Errorf("include glob not honored:\n%s", res.Output)
	}
}

func TestGrep_Pagination(t *testing.T) {
	r, v, dir := newToolEnv(t)
	r.Register(NewGrepTool(v))
	var b strings.Builder
	for i := 0; i < maxGrepMatches+10; i++ {
		fmt.Fprintf(&b, "needle %d\n", i)
	}
	writeTestFile(t, dir, "big.txt", b.String())

	res := dispatch(t, r, "grep", map[string]any{"pattern": "needle", "context_lines": 0})
	if !res.Truncated {
		t.Fatalf("grep over the match cap = %+v, want Truncated", res)
	}
	if res.Metadata["total_matches"] != fmt.Sprintf("%d", maxGrepMatches+10) {
		t.Errorf("total_matches = %q, want %d", res.Metadata["total_matches"], maxGrepMatches+10)
	}
	if res.Metadata["shown"] != fmt.Sprintf("%d", maxGrepMatches) {
		t.Errorf("shown = %q, want %d", res.Metadata["shown"], maxGrepMatches)
	}

	res = dispatch(t, r, "grep", map[string]any{"pattern": "needle", "context_lines": 0, "offset": maxGrepMatches})
	if res.Truncated {
		t.Errorf("final page = %+v, want not truncated", res)
	}
	if res.Metadata["shown"] != "10" {
		t.Errorf("shown = %q, want 10 on the final page", res.Metadata["shown"])
	}
}

func TestGrep_InvalidPatternIsFailedResult(t *testing.T) {
	r, v, _ := newToolEnv(t)
	r.Register(NewGrepTool(v))

	res := dispatch(t, r, "grep", map[string]any{"pattern": "[unclosed"})
	if res.Success {
		t.Fatalf("grep with a broken pattern = %+v, want failure", res)
	}
	if !strings.Contains(res.Error, "invalid pattern") {
		t.Errorf("Error = %q, want the pattern complaint", res.Error)
	}
}
