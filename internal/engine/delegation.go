// Package engine provides agent orchestration functionality.
// This file contains the shared bookkeeping for subagent delegation:
// depth tracking, the shared token budget, and the concurrency gate.

package engine

import (
	"context"
	"sync"
)

// TokenBudget is the shared pool drawn from by every subagent in an agent
// tree. It is the only mutable state touched by more than one logical
// agent instance, so all updates happen under the mutex. The budget is
// shared, not re-granted: siblings drain the same pool.
type TokenBudget struct {
	mu       sync.Mutex
	total    int
	consumed int
}

// NewTokenBudget creates a budget with the given total. A total of zero
// or less means unlimited.
func NewTokenBudget(total int) *TokenBudget {
	return &TokenBudget{total: total}
}

// Consume subtracts n tokens from the pool. It reports false once the
// pool is exhausted; the consumption is still recorded so accounting
// stays accurate for the caller that overran.
func (b *TokenBudget) Consume(n int) bool {
	if b == nil || b.total <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumed += n
	return b.consumed <= b.total
}

// Remaining returns the unconsumed portion of the pool, never negative.
func (b *TokenBudget) Remaining() int {
	if b == nil || b.total <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed >= b.total {
		return 0
	}
	return b.total - b.consumed
}

// Consumed returns the tokens drawn so far.
func (b *TokenBudget) Consumed() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed
}

// Total returns the configured pool size (zero means unlimited).
func (b *TokenBudget) Total() int {
	if b == nil {
		return 0
	}
	return b.total
}

// Semaphore bounds how many subagents are live at once across the whole
// agent tree. Acquire suspends the spawning call until a slot frees up.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a counting semaphore with n slots. n of zero or
// less disables the gate.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire takes a slot, blocking until one is available or the context
// is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s == nil || s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is immediately available. It never
// blocks, so callers already covered by an ancestor's slot can use it
// without risking a wait on themselves.
func (s *Semaphore) TryAcquire() bool {
	if s == nil || s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (s *Semaphore) Release() {
	if s == nil || s.slots == nil {
		return
	}
	<-s.slots
}

// Delegation carries the per-agent view of the delegation limits. Depth
// increases by one per nested spawn; Budget and Slots are shared by
// reference across the whole tree.
type Delegation struct {
	Depth    int
	MaxDepth int
	Budget   *TokenBudget
	Slots    *Semaphore
}

// Child returns the delegation state for a subagent one level down.
// The shared budget and semaphore are carried through unchanged.
func (d Delegation) Child() Delegation {
	return Delegation{
		Depth:    d.Depth + 1,
		MaxDepth: d.MaxDepth,
		Budget:   d.Budget,
		Slots:    d.Slots,
	}
}

// SpawnAllowed reports whether a subagent may be created at the next
// depth level.
func (d Delegation) SpawnAllowed() bool {
	return d.Depth+1 <= d.MaxDepth
}
