// Package session provides the exclusive render-session token that freezes scene authoring
// while a frame range is being evaluated.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// ErrActive is returned by mutators while a render session holds the guard.
var ErrActive = errors.New("render session in progress")

// Guard hands out at most one Token at a time. The zero value is not usable; use NewGuard.
type Guard struct {
	mu    *sync.Mutex
	token *Token
}

// Token is the proof of exclusive render access. Release is idempotent and safe to defer.
type Token struct {
	guard *Guard
	once  sync.Once
}

// NewGuard creates an unheld guard.
//
// Returns:
//   - *Guard: the new guard
func NewGuard() *Guard {
	return &Guard{mu: &sync.Mutex{}}
}

// Acquire takes the guard.
//
// Returns:
//   - *Token: the session token to release when rendering ends
//   - error: ErrActive if another session already holds the guard
func (g *Guard) Acquire() (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != nil {
		return nil, ErrActive
	}
	g.token = &Token{guard: g}
	return g.token, nil
}

// Active reports whether a session currently holds the guard.
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token != nil
}

// Check returns an error naming op if a session is active, and nil otherwise.
// A nil guard never blocks.
//
// Parameters:
//   - op: the mutating operation, for error context
//
// Returns:
//   - error: wraps ErrActive when mutation is not allowed
func (g *Guard) Check(op string) error {
	if g == nil || !g.Active() {
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrActive)
}

// Release returns the token to its guard.
func (t *Token) Release() {
	t.once.Do(func() {
		t.guard.mu.Lock()
		defer t.guard.mu.Unlock()
		if t.guard.token == t {
			t.guard.token = nil
		}
	})
}
