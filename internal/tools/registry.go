// Package tools maps tool names to executable capabilities and enforces
// the uniform result contract the agent loop depends on: dispatch never
// raises, failures become failed results, and output is size-capped.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wconnell87/drover/internal/engine"
)

// DefaultMaxOutputSize caps tool output fed back into the conversation.
const DefaultMaxOutputSize = 16 * 1024

// ToolFunc executes one tool call. Returning an error is equivalent to
// returning a failed result; the registry folds both into the same shape.
type ToolFunc func(ctx context.Context, args map[string]any) (engine.ToolResult, error)

// Tool is one registered capability.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string // JSON schema for the arguments
	Fn          ToolFunc
}

// ValidateArgs validates the provided arguments against the tool's JSON
// schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", t.Name, strings.Join(msgs, "; "))
	}
	return nil
}

// Registry holds the tool set shared by an agent and its subagents. It
// is populated during construction and treated as immutable afterwards,
// so concurrent subagents can read it without locking.
type Registry struct {
	tools         map[string]Tool
	maxOutputSize int
}

// NewRegistry creates an empty registry. maxOutputSize of zero or less
// uses the package default.
func NewRegistry(maxOutputSize int) *Registry {
	if maxOutputSize <= 0 {
		maxOutputSize = DefaultMaxOutputSize
	}
	return &Registry{
		tools:         make(map[string]Tool),
		maxOutputSize: maxOutputSize,
	}
}

// Register adds a tool. Later registrations replace earlier ones of the
// same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the schema list advertised to the provider, in stable
// name order.
func (r *Registry) Schemas() []engine.ToolSchema {
	schemas := make([]engine.ToolSchema, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		schemas = append(schemas, engine.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
		})
	}
	return schemas
}

// Narrow returns a new registry restricted to the allowed names (all
// tools when allowed is empty), minus the excluded ones. Used when
// forking a tool set for a subagent.
func (r *Registry) Narrow(allowed []string, exclude ...string) *Registry {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	narrowed := NewRegistry(r.maxOutputSize)
	if len(allowed) == 0 {
		for name, t := range r.tools {
			if !excluded[name] {
				narrowed.Register(t)
			}
		}
		return narrowed
	}
	for _, name := range allowed {
		if t, ok := r.tools[name]; ok && !excluded[name] {
			narrowed.Register(t)
		}
	}
	return narrowed
}

// Dispatch executes a tool call and always returns a result: unknown
// tools, malformed arguments, executor errors, and executor panics all
// come back as ToolResult{Success: false}. Output beyond the configured
// cap is cut, with the truncation recorded in the result metadata.
func (r *Registry) Dispatch(ctx context.Context, call engine.ToolCall) (result engine.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = failure(fmt.Sprintf("tool %s panicked: %v", call.Name, rec))
		}
	}()

	t, ok := r.tools[call.Name]
	if !ok {
		return failure(fmt.Sprintf("unknown tool %q (available: %s)", call.Name, strings.Join(r.Names(), ", ")))
	}

	if err := t.ValidateArgs(call.Args); err != nil {
		return failure(err.Error())
	}

	res, err := t.Fn(ctx, call.Args)
	if err != nil {
		return failure(err.Error())
	}

	if len(res.Output) > r.maxOutputSize {
		// back the cut point up to a rune boundary so the cap never
		// splits a multi-byte character
		cut := r.maxOutputSize
		for cut > 0 && !utf8.RuneStart(res.Output[cut]) {
			cut--
		}
		over := len(res.Output) - cut
		res.Output = res.Output[:cut]
		res.Truncated = true
		if res.Metadata == nil {
			res.Metadata = make(map[string]string)
		}
		res.Metadata["truncated"] = fmt.Sprintf("output cut by %d bytes at the %d byte cap", over, r.maxOutputSize)
	}
	return res
}

// OK builds a successful result.
func OK(output string) engine.ToolResult {
	return engine.ToolResult{Success: true, Output: output}
}

// Errf builds a failed result.
func Errf(format string, args ...any) engine.ToolResult {
	return failure(fmt.Sprintf(format, args...))
}

func failure(msg string) engine.ToolResult {
	return engine.ToolResult{Success: false, Error: msg}
}
