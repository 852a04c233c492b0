// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import (
	"context"
	"fmt"
	"sync"

	"inkwell/internal/sentinel"
)

// Session is one live feed on one page view: a Controller plus the sentinel
// Watcher that drives it.
type Session struct {
	ID         string
	Controller *Controller
	Watcher    *sentinel.Watcher[Batch]

	mu  sync.Mutex
	seq int
}

func newSession(id string, ctrl *Controller, opts sentinel.Options) *Session {
	s := &Session{ID: id, Controller: ctrl}
	s.Watcher = sentinel.New(opts, ctrl.LoadMore)
	return s
}

// NextTarget attaches the watcher to a fresh sentinel element and returns
// its DOM id. Every rendered sentinel gets its own id, so a stale element
// left in the page can never trigger a load.
func (s *Session) NextTarget() string {
	s.mu.Lock()
	s.seq++
	target := fmt.Sprintf("sentinel-%s-%d", shortID(s.ID), s.seq)
	s.mu.Unlock()

	s.Watcher.Observe(target)
	return target
}

// Visible handles an intersection report from the browser. fired is true
// when the report caused a page load.
func (s *Session) Visible(ctx context.Context, ev sentinel.Event) (Batch, bool, error) {
	s.syncEnabled()
	batch, fired, err := s.Watcher.Notify(ctx, ev)
	s.syncEnabled()
	return batch, fired, err
}

// Retry loads the next page directly, for the "Try Again" button.
func (s *Session) Retry(ctx context.Context) (Batch, error) {
	batch, err := s.Controller.LoadMore(ctx)
	s.syncEnabled()
	return batch, err
}

// Close detaches the watcher and abandons any outstanding request.
func (s *Session) Close() {
	s.Watcher.Detach()
	s.Controller.Close()
}

// syncEnabled keeps the watcher off while a page is loading and once the
// list has ended. After a failure it stays on, so the sentinel coming back
// into view retries like the button does.
func (s *Session) syncEnabled() {
	state := s.Controller.Snapshot().State
	s.Watcher.SetEnabled(state != StateLoading && state != StateEnd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
