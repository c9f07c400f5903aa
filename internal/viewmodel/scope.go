// Package viewmodel holds the presentation state for the reminder list and
// the save-reminder form.
//
// View-models expose observable fields ([live.Value], [live.Event]) that any
// front end can render: the terminal UI, the HTTP API, or the MCP server.
// Dependencies are passed to the constructors; there is no global registry.
package viewmodel

import (
	"context"
	"log/slog"
	"sync"
)

// Scope owns the background work of one view-model. Work launched in a scope
// is cancelled when the scope closes.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// NewScope creates a scope derived from parent.
func NewScope(parent context.Context, logger *slog.Logger) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel, log: logger}
}

// Context returns the scope's context. It is cancelled by [Scope.Close].
func (s *Scope) Context() context.Context { return s.ctx }

// Launch runs fn on a new goroutine tracked by the scope. A panic in fn is
// logged and does not crash the process.
func (s *Scope) Launch(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("view-model task panicked", "panic", r)
			}
		}()
		fn(s.ctx)
	}()
}

// Wait blocks until every launched task has returned.
func (s *Scope) Wait() { s.wg.Wait() }

// Close cancels the scope and waits for its tasks.
func (s *Scope) Close() {
	s.cancel()
	s.wg.Wait()
}
