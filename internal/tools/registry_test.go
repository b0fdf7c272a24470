package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wconnell87/drover/internal/engine"
)

const echoSchema = `{
	"type": "object",
	"properties": {
		"text": {"type": "string"}
	},
	"required": ["text"],
	"additionalProperties": false
}`

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "echoes its input",
		SchemaJSON:  echoSchema,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			text, err := stringArg(args, "text")
			if err != nil {
				return engine.ToolResult{}, err
			}
			return OK(text), nil
		},
	}
}

func TestRegistry_DispatchSuccess(t *testing.T) {
	r := NewRegistry(0)
	r.Register(echoTool())

	res := r.Dispatch(context.Background(), engine.ToolCall{
		ID:   "c1",
		Name: "echo",
		Args: map[string]any{"text": "hello"},
	})
	if !res.Success {
		t.Fatalf("Dispatch() = %+v, want success", res)
	}
	if res.Output != "hello" {
		t.Errorf("Output = %q, want %q", res.Output, "hello")
	}
}

func TestRegistry_UnknownToolIsFailedResult(t *testing.T) {
	r := NewRegistry(0)
	r.Register(echoTool())

	res := r.Dispatch(context.Background(), engine.ToolCall{Name: "nope", Args: map[string]any{}})
	if res.Success {
		t.Fatal("dispatching an unknown tool must fail, not succeed")
	}
	if !strings.Contains(res.Error, "unknown tool") || !strings.Contains(res.Error, "echo") {
		t.Errorf("Error = %q, want unknown-tool message listing available tools", res.Error)
	}
}

func TestRegistry_SchemaValidationRejectsBadArgs(t *testing.T) {
	r := NewRegistry(0)
	r.Register(echoTool())

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing required", map[string]any{}},
		{"wrong type", map[string]any{"text": 42}},
		{"extra property", map[string]any{"text": "x", "bogus": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Dispatch(context.Background(), engine.ToolCall{Name: "echo", Args: tt.args})
			if res.Success {
				t.Errorf("Dispatch(%v) succeeded, want schema rejection", tt.args)
			}
		})
	}
}

func TestRegistry_PanicBecomesFailedResult(t *testing.T) {
	r := NewRegistry(0)
	r.Register(Tool{
		Name:        "bomb",
		Description: "panics",
		SchemaJSON:  `{"type": "object"}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			panic("kaboom")
		},
	})

	res := r.Dispatch(context.Background(), engine.ToolCall{Name: "bomb", Args: map[string]any{}})
	if res.Success {
		t.Fatal("a panicking tool must come back as a failed result")
	}
	if !strings.Contains(res.Error, "kaboom") {
		t.Errorf("Error = %q, want the panic value included", res.Error)
	}
}

func TestRegistry_ErrorBecomesFailedResult(t *testing.T) {
	r := NewRegistry(0)
	r.Register(Tool{
		Name:        "flaky",
		Description: "always errors",
		SchemaJSON:  `{"type": "object"}`,
		Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
			return engine.ToolResult{}, errors.New("backend unavailable")
		},
	})

	res := r.Dispatch(context.Background(), engine.ToolCall{Name: "flaky", Args: map[string]any{}})
	if res.Success || res.Error != "backend unavailable" {
		t.Errorf("Dispatch() = %+v, want failed result carrying the error", res)
	}
}

func TestRegistry_OutputTruncation(t *testing.T) {
	r := NewRegistry(10)
	r.Register(echoTool())

	res := r.Dispatch(context.Background(), engine.ToolCall{
		Name: "echo",
		Args: map[string]any{"text": strings.Repeat("a", 25)},
	})
	if !res.Success {
		t.Fatalf("Dispatch() = %+v, want success", res)
	}
	if len(res.Output) != 10 {
		t.Errorf("len(Output) = %d, want exactly the 10 byte cap", len(res.Output))
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if res.Metadata["truncated"] == "" {
		t.Error("truncation not recorded in metadata")
	}
}

func TestRegistry_TruncationKeepsRuneBoundary(t *testing.T) {
	// 11 byte cap over two-byte runes: a blind cut would land mid-rune
	r := NewRegistry(11)
	r.Register(echoTool())

	res := r.Dispatch(context.Background(), engine.ToolCall{
		Name: "echo",
		Args: map[string]any{"text": strings.Repeat("é", 20)},
	})
	if !res.Truncated {
		t.Fatal("Truncated = false, want true")
	}
	if !utf8.ValidString(res.Output) {
		t.Errorf("Output = %q is not valid UTF-8 after the cut", res.Output)
	}
	if len(res.Output) != 10 {
		t.Errorf("len(Output) = %d, want 10, the nearest rune boundary under the cap", len(res.Output))
	}
}

func TestRegistry_Narrow(t *testing.T) {
	r := NewRegistry(0)
	r.Register(echoTool())
	r.Register(Tool{Name: "extra", SchemaJSON: `{"type": "object"}`, Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
		return OK(""), nil
	}})
	r.Register(Tool{Name: "spawn_subagent", SchemaJSON: `{"type": "object"}`, Fn: func(ctx context.Context, args map[string]any) (engine.ToolResult, error) {
		return OK(""), nil
	}})

	narrowed := r.Narrow([]string{"echo", "spawn_subagent"}, "spawn_subagent")
	names := narrowed.Names()
	if len(names) != 1 || names[0] != "echo" {
		t.Errorf("Narrow() tools = %v, want [echo]", names)
	}

	all := r.Narrow(nil, "spawn_subagent")
	if len(all.Names()) != 2 {
		t.Errorf("Narrow(nil) tools = %v, want everything but the excluded", all.Names())
	}
}

func TestRegistry_SchemasSorted(t *testing.T) {
	r := NewRegistry(0)
	r.Register(Tool{Name: "zeta", SchemaJSON: `{"type": "object"}`})
	r.Register(Tool{Name: "alpha", SchemaJSON: `{"type": "object"}`})

	schemas := r.Schemas()
	if len(schemas) != 2 || schemas[0].Name != "alpha" || schemas[1].Name != "zeta" {
		t.Errorf("Schemas() order = %v, want stable name order", []string{schemas[0].Name, schemas[1].Name})
	}
}
