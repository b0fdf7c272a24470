package sandbox

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCapWriter(t *testing.T) {
	w := newCapWriter(10)

	n, err := w.Write([]byte("hello"))
	if n != 5 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if w.Truncated() {
		t.Error("Truncated() = true before overflow")
	}

	// the writer reports full consumption so the pipe never stalls
	n, err = w.Write([]byte("worldandmore"))
	if n != 12 || err != nil {
		t.Fatalf("overflow Write() = %d, %v", n, err)
	}
	if got := w.String(); got != "helloworld" {
		t.Errorf("String() = %q, want first 10 bytes exactly", got)
	}
	if !w.Truncated() {
		t.Error("Truncated() = false after overflow")
	}
}

func TestCapWriter_Unlimited(t *testing.T) {
	w := newCapWriter(0)
	w.Write([]byte(strings.Repeat("x", 100000)))
	if w.Truncated() {
		t.Error("unlimited writer reported truncation")
	}
	if len(w.String()) != 100000 {
		t.Errorf("len = %d, want 100000", len(w.String()))
	}
}

// frame builds one multiplexed Docker log frame.
func frame(stream byte, payload string) []byte {
	size := len(payload)
	header := []byte{stream, 0, 0, 0, byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)}
	return append(header, payload...)
}

func TestDemuxDockerLogs(t *testing.T) {
	var muxed []byte
	muxed = append(muxed, frame(1, "out line\n")...)
	muxed = append(muxed, frame(2, "err line\n")...)
	muxed = append(muxed, frame(1, "more out\n")...)

	stdout := newCapWriter(0)
	stderr := newCapWriter(0)
	demuxDockerLogs(bytes.NewReader(muxed), stdout, stderr)

	if got := stdout.String(); got != "out line\nmore out\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := stderr.String(); got != "err line\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestDemuxDockerLogs_TruncatedStream(t *testing.T) {
	full := frame(1, "complete")
	cut := full[:len(full)-3]

	stdout := newCapWriter(0)
	stderr := newCapWriter(0)
	demuxDockerLogs(bytes.NewReader(cut), stdout, stderr)
	if stdout.String() != "" || stderr.String() != "" {
		t.Errorf("short stream produced output: %q / %q", stdout.String(), stderr.String())
	}
}

func TestImageFor(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		want   string
	}{
		{"go project", "go.mod", "golang:alpine"},
		{"rust project", "Cargo.toml", "rust:alpine"},
		{"node project", "package.json", "node:alpine"},
		{"python project", "pyproject.toml", "python:alpine"},
		{"unknown project", "", defaultDockerImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.marker != "" {
				if err := os.WriteFile(filepath.Join(dir, tt.marker), []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			if got := ImageFor(dir, Config{}); got != tt.want {
				t.Errorf("ImageFor() = %q, want %q", got, tt.want)
			}
		})
	}

	// explicit override wins over detection
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "go.mod"), []byte("x"), 0o644)
	if got := ImageFor(dir, Config{DockerImage: "custom:tag"}); got != "custom:tag" {
		t.Errorf("ImageFor() with override = %q, want custom:tag", got)
	}
}

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1g", 1024 * 1024 * 1024},
		{"512m", 512 * 1024 * 1024},
		{"64k", 64 * 1024},
		{"", 1024 * 1024 * 1024},
		{"garbage", 1024 * 1024 * 1024},
	}
	for _, tt := range tests {
		if got := parseMemory(tt.in); got != tt.want {
			t.Errorf("parseMemory(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseCPU(t *testing.T) {
	if got := parseCPU("4"); got != 4 {
		t.Errorf("parseCPU(4) = %d, want 4", got)
	}
	if got := parseCPU(""); got != 2 {
		t.Errorf("parseCPU('') = %d, want default 2", got)
	}
	if got := parseCPU("-1"); got != 2 {
		t.Errorf("parseCPU(-1) = %d, want default 2", got)
	}
}

func TestConfigCaps(t *testing.T) {
	c := Config{}
	if c.stdoutCap() != defaultStdoutBytes || c.stderrCap() != defaultStderrBytes {
		t.Errorf("zero config caps = %d/%d, want package defaults", c.stdoutCap(), c.stderrCap())
	}
	c = Config{MaxStdoutBytes: 100, MaxStderrBytes: 50}
	if c.stdoutCap() != 100 || c.stderrCap() != 50 {
		t.Errorf("explicit caps = %d/%d", c.stdoutCap(), c.stderrCap())
	}
}
