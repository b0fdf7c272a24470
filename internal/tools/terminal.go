package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/sandbox"
	"github.com/wconnell87/drover/internal/security"
)

// NewTerminalTool runs a command in the working directory after it
// clears the policy checks for the active execution mode. Commands
// needing operator approval are rejected unless the call carries
// confirm=true, which the host sets only after the operator agreed.
func NewTerminalTool(validator *security.Validator, runner sandbox.Runner, defaultTimeout time.Duration) Tool {
	return Tool{
		Name:        "terminal",
		Description: "Run a shell-free command in the working directory. Pipes, redirection and command chaining are not supported.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"command": {"type": "string", "description": "Command line to run, e.g. 'go test ./...'"},
				"confirm": {"type": "boolean", "description": "Set by the host after operator approval of a gated command"},
				"timeout_seconds": {"type": "integer", "minimum": 1, "maximum": 600, "description": "Override the default command timeout"}
			},
			"required": ["command"],
			"additionalProperties": false
		}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			command, err := stringArg(args, "command")
			if err != nil {
				return engine.ToolResult{}, err
			}
			confirm := optionalBool(args, "confirm", false)

			timeout := defaultTimeout
			if secs := optionalInt(args, "timeout_seconds", 0); secs > 0 {
				timeout = time.Duration(secs) * time.Second
			}

			if err := validator.ValidateCommand(command); err != nil {
				var confirmErr *security.ConfirmationRequiredError
				if errors.As(err, &confirmErr) {
					if !confirm {
						return engine.ToolResult{}, fmt.Errorf("command requires operator approval: %s", confirmErr.Reason)
					}
				} else {
					return engine.ToolResult{}, err
				}
			}

			parsed, err := security.SplitCommand(command)
			if err != nil {
				return engine.ToolResult{}, err
			}

			res, err := runner.Run(ctx, validator.WorkingDir(), parsed.Program, parsed.Args, timeout)
			if err != nil {
				return engine.ToolResult{}, fmt.Errorf("run %s: %w", parsed.Program, err)
			}

			result := OK(renderExecution(command, res))
			result.Truncated = res.StdoutTruncated || res.StderrTruncated
			result.Metadata = map[string]string{
				"exit_code": fmt.Sprintf("%d", res.Code),
			}
			if res.TimedOut {
				result.Metadata["timed_out"] = timeout.String()
			}
			if res.Cancelled {
				result.Metadata["cancelled"] = "true"
			}
			return result, nil
		},
	}
}

func renderExecution(command string, res sandbox.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$ %s\nexit code: %d\n", command, res.Code)
	if res.TimedOut {
		b.WriteString("command timed out and was killed\n")
	}
	if res.Cancelled {
		b.WriteString("command was cancelled and killed\n")
	}
	if res.Stdout != "" {
		b.WriteString("--- stdout ---\n")
		b.WriteString(res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			b.WriteByte('\n')
		}
		if res.StdoutTruncated {
			b.WriteString("[stdout truncated]\n")
		}
	}
	if res.Stderr != "" {
		b.WriteString("--- stderr ---\n")
		b.WriteString(res.Stderr)
		if !strings.HasSuffix(res.Stderr, "\n") {
			b.WriteByte('\n')
		}
		if res.StderrTruncated {
			b.WriteString("[stderr truncated]\n")
		}
	}
	return b.String()
}
