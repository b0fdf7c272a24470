// Package engine provides agent orchestration functionality.
// This file contains the typed errors surfaced by the loop.

package engine

import (
	"errors"
	"fmt"
)

// MaxIterationsError indicates the iteration counter reached the configured
// limit. It is terminal for the Execute call and is never retried here.
type MaxIterationsError struct {
	Limit      int
	Iterations int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("maximum iterations exceeded: %d iterations against a limit of %d", e.Iterations, e.Limit)
}

// IsMaxIterations checks if an error is a MaxIterationsError.
func IsMaxIterations(err error) bool {
	var me *MaxIterationsError
	return errors.As(err, &me)
}

// MaxDepthError indicates a subagent spawn would exceed the delegation
// depth limit. It fails the spawning tool call only; the parent loop
// continues with a failed ToolResult.
type MaxDepthError struct {
	Depth    int
	MaxDepth int
}

func (e *MaxDepthError) Error() string {
	return fmt.Sprintf("maximum delegation depth exceeded: spawn at depth %d, limit %d", e.Depth, e.MaxDepth)
}

// IsMaxDepth checks if an error is a MaxDepthError.
func IsMaxDepth(err error) bool {
	var de *MaxDepthError
	return errors.As(err, &de)
}

// TokenBudgetError indicates the shared delegation token budget ran out
// mid-subagent. The subagent stops and returns its partial answer; callers
// should surface that answer as a truncated result, not a hard failure.
type TokenBudgetError struct {
	Consumed int
	Budget   int
	Partial  string // best answer produced before the budget ran out
}

func (e *TokenBudgetError) Error() string {
	return fmt.Sprintf("delegation token budget exhausted: consumed %d of %d", e.Consumed, e.Budget)
}

// IsTokenBudget checks if an error is a TokenBudgetError.
func IsTokenBudget(err error) bool {
	var te *TokenBudgetError
	return errors.As(err, &te)
}

// ProviderError wraps a transport or auth failure from the model provider.
// It is fatal to the whole Execute call; retry, if any, belongs to the
// provider client, not this layer.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError checks if an error is a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
