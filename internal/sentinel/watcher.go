// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sentinel gates visibility events reported by the browser for the
// sentinel element at the bottom of a feed. The browser script observes the
// element with IntersectionObserver and reports each intersection change;
// the Watcher turns those reports into at most one callback per transition
// into view.
package sentinel

import (
	"context"
	"errors"
	"sync"
)

const (
	// DefaultThreshold replaces a threshold outside [0, 1].
	DefaultThreshold = 0.2

	// DefaultRootMargin expands the observer root box (CSS margin syntax).
	DefaultRootMargin = "0px"
)

// ErrDetached is returned by Notify once the watcher has been detached.
var ErrDetached = errors.New("sentinel: watcher detached")

// Options configures the observer that runs in the browser. A zero
// Threshold is honoured: any intersecting pixel counts as in view, as with
// the browser's own default.
type Options struct {
	Threshold  float64
	RootMargin string
}

func (o Options) withDefaults() Options {
	if o.Threshold < 0 || o.Threshold > 1 {
		o.Threshold = DefaultThreshold
	}
	if o.RootMargin == "" {
		o.RootMargin = DefaultRootMargin
	}
	return o
}

// Event is one intersection change for a target element.
type Event struct {
	Target  string
	Visible bool
	Ratio   float64
}

// Watcher invokes onVisible when its attached target scrolls into view.
// Its zero value is not usable; create one with New.
type Watcher[T any] struct {
	opts      Options
	onVisible func(ctx context.Context) (T, error)

	mu       sync.Mutex
	target   string
	inView   bool
	enabled  bool
	detached bool
}

// New creates an enabled watcher with no target attached.
func New[T any](opts Options, onVisible func(ctx context.Context) (T, error)) *Watcher[T] {
	return &Watcher[T]{
		opts:      opts.withDefaults(),
		onVisible: onVisible,
		enabled:   true,
	}
}

// Options returns the effective observer options.
func (w *Watcher[T]) Options() Options {
	return w.opts
}

// Observe attaches the watcher to target, detaching it from any previous
// one. A newly attached target starts out of view.
func (w *Watcher[T]) Observe(target string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detached {
		return
	}
	w.target = target
	w.inView = false
}

// Target returns the currently attached target, or "".
func (w *Watcher[T]) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// SetEnabled turns callbacks on or off. Visibility tracking continues while
// disabled so a target that is still in view when re-enabled does not fire
// until it leaves and re-enters.
func (w *Watcher[T]) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

// Detach stops observing. No callback is invoked afterwards.
func (w *Watcher[T]) Detach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.detached = true
	w.target = ""
}

// Notify feeds one intersection change into the watcher. It reports
// fired=true when the event was a transition into view of the attached
// target while enabled, in which case onVisible was called and its result
// is returned.
func (w *Watcher[T]) Notify(ctx context.Context, ev Event) (result T, fired bool, err error) {
	w.mu.Lock()
	if w.detached {
		w.mu.Unlock()
		return result, false, ErrDetached
	}
	if ev.Target == "" || ev.Target != w.target {
		w.mu.Unlock()
		return result, false, nil
	}

	visible := ev.Visible && ev.Ratio >= w.opts.Threshold
	if !visible {
		w.inView = false
		w.mu.Unlock()
		return result, false, nil
	}
	if w.inView {
		w.mu.Unlock()
		return result, false, nil
	}
	w.inView = true
	if !w.enabled {
		w.mu.Unlock()
		return result, false, nil
	}
	w.mu.Unlock()

	result, err = w.onVisible(ctx)
	return result, true, err
}
