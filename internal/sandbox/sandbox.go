// Package sandbox runs validated terminal commands with hard resource
// limits: a wall-clock timeout that kills the process, and independent
// byte caps on captured stdout and stderr.
package sandbox

import (
	"bytes"
	"context"
	"time"
)

// Result captures the output of a command. TimedOut means the command's
// own deadline expired; Cancelled means the caller's context was
// cancelled before that. The two are never both set.
type Result struct {
	Stdout          string
	Stderr          string
	Code            int
	TimedOut        bool
	Cancelled       bool
	StdoutTruncated bool
	StderrTruncated bool
}

// Runner executes a command in a working directory. Implementations must
// kill the process (not merely abandon it) when the timeout expires, and
// must enforce the configured output caps; nothing bypasses them.
type Runner interface {
	// Run spawns the program directly with the given argument vector.
	// No shell is involved at any point.
	Run(ctx context.Context, workDir, program string, args []string, timeout time.Duration) (Result, error)
}

// capWriter keeps the first max bytes written and discards the rest,
// remembering whether anything was dropped.
type capWriter struct {
	buf     bytes.Buffer
	max     int
	dropped bool
}

func newCapWriter(max int) *capWriter {
	return &capWriter{max: max}
}

// Write never errors: overflowing output is silently discarded so the
// child process is not disturbed by a full pipe.
func (w *capWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.max <= 0 {
		w.buf.Write(p)
		return n, nil
	}
	room := w.max - w.buf.Len()
	if room >= n {
		w.buf.Write(p)
		return n, nil
	}
	if room > 0 {
		w.buf.Write(p[:room])
	}
	w.dropped = true
	return n, nil
}

func (w *capWriter) String() string { return w.buf.String() }

func (w *capWriter) Truncated() bool { return w.dropped }
