//go:build !windows

package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestHostRunner_CapturesOutput(t *testing.T) {
	r := NewHostRunner(Config{})
	res, err := r.Run(context.Background(), t.TempDir(), "echo", []string{"hello"}, 10*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Code != 0 {
		t.Errorf("Code = %d, want 0", res.Code)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
}

func TestHostRunner_NonZeroExitIsResult(t *testing.T) {
	r := NewHostRunner(Config{})
	res, err := r.Run(context.Background(), t.TempDir(), "false", nil, 10*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v, a non-zero exit must not be an error", err)
	}
	if res.Code == 0 {
		t.Errorf("Code = 0, want non-zero")
	}
}

func TestHostRunner_KillsOnTimeout(t *testing.T) {
	r := NewHostRunner(Config{})
	start := time.Now()
	res, err := r.Run(context.Background(), t.TempDir(), "sleep", []string{"30"}, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v, the process was not killed promptly", elapsed)
	}
}

func TestHostRunner_CancelledIsNotTimeout(t *testing.T) {
	r := NewHostRunner(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	res, err := r.Run(ctx, t.TempDir(), "sleep", []string{"30"}, 30*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	if res.TimedOut {
		t.Error("TimedOut = true, a caller cancellation is not a timeout")
	}
}

func TestHostRunner_OutputCap(t *testing.T) {
	r := NewHostRunner(Config{MaxStdoutBytes: 8})
	res, err := r.Run(context.Background(), t.TempDir(), "echo", []string{"a very long line of output"}, 10*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Stdout) != 8 {
		t.Errorf("len(Stdout) = %d, want exactly the 8 byte cap", len(res.Stdout))
	}
	if !res.StdoutTruncated {
		t.Error("StdoutTruncated = false, want true")
	}
}
