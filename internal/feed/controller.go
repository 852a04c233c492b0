// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package feed implements the paged post list behind the infinite-scroll
// grid. A Controller owns the state of one filter session: the posts shown
// so far, the last loaded page, and whether more pages exist. At most one
// page request is outstanding at a time, and a response that arrives after
// the filter was reset is discarded.
package feed

import (
	"context"
	"sync"

	"inkwell/internal/content"
	"inkwell/internal/models"
)

// DefaultPageSize is the number of posts requested per page.
const DefaultPageSize = 9

// State is the load state of a Controller.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Filter selects which posts a feed lists.
type Filter struct {
	Category string
	Search   string
}

// PageFetcher loads one page of posts. *content.Client satisfies it.
type PageFetcher interface {
	FetchPosts(ctx context.Context, q content.PostQuery) (models.PostPage, error)
}

// Observer is told about every state change.
type Observer interface {
	ObserveTransition(from, to string)
}

// Options configures a Controller.
type Options struct {
	PageSize    int
	InitialPage int // page number the Initial items came from; default 1
	Filter      Filter
	Initial     models.PostPage
	Observer    Observer
}

// Batch is the outcome of one LoadMore call.
type Batch struct {
	Items   []models.Post // posts appended by this call
	Page    int           // page the items came from
	Skipped bool          // a request was already in flight, or the list has ended
	Stale   bool          // the response arrived after a reset and was dropped
}

// Snapshot is a consistent view of the controller for rendering.
type Snapshot struct {
	Items      []models.Post
	IsLoading  bool
	Err        error
	HasMore    bool
	ReachedEnd bool
	EndReason  error // content.ErrEmptyPage when an empty page ended the list
	Page       int
	State      State
	Filter     Filter
}

// Pager is the surface the presentation layer needs.
type Pager interface {
	Snapshot() Snapshot
	LoadMore(ctx context.Context) (Batch, error)
	Reset()
}

// Controller is the paged list state machine. It is safe for concurrent use.
type Controller struct {
	fetch    PageFetcher
	pageSize int
	observer Observer

	mu          sync.Mutex
	filter      Filter
	initial     models.PostPage
	initialPage int
	items       []models.Post
	page        int
	hasMore     bool
	reachedEnd  bool
	emptyEnd    bool // an empty page, not hasMore=false, ended the list
	err         error
	inFlight    bool
	gen         uint64
	cancel      context.CancelFunc
}

var _ Pager = (*Controller)(nil)

// NewController creates a controller seeded with the server-rendered first
// page. It starts in StateIdle, or StateEnd when that page reports no more.
func NewController(fetch PageFetcher, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.InitialPage <= 0 {
		opts.InitialPage = 1
	}
	c := &Controller{
		fetch:       fetch,
		pageSize:    opts.PageSize,
		observer:    opts.Observer,
		filter:      opts.Filter,
		initial:     opts.Initial,
		initialPage: opts.InitialPage,
	}
	c.restoreLocked()
	return c
}

// LoadMore requests the page after the last loaded one and appends its
// posts. It is a no-op while a request is outstanding or once the list has
// ended. On failure the controller enters StateError with its items kept
// and the page counter unchanged, so the next call retries the same page.
// An empty page ends the list even if the previous page said more existed.
func (c *Controller) LoadMore(ctx context.Context) (Batch, error) {
	c.mu.Lock()
	before := c.stateLocked()
	if before == StateLoading || before == StateEnd {
		c.mu.Unlock()
		return Batch{Skipped: true}, nil
	}

	gen := c.gen
	next := c.page + 1
	q := content.PostQuery{
		Page:     next,
		Limit:    c.pageSize,
		Category: c.filter.Category,
		Search:   c.filter.Search,
	}
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.inFlight = true
	c.err = nil
	c.mu.Unlock()
	c.report(before, StateLoading)

	page, err := c.fetch.FetchPosts(fctx, q)
	cancel()

	c.mu.Lock()
	c.inFlight = false
	c.cancel = nil

	var batch Batch
	switch {
	case gen != c.gen:
		batch = Batch{Stale: true}
		err = nil
	case err != nil:
		c.err = err
	case len(page.Items) == 0:
		c.reachedEnd = true
		c.emptyEnd = true
		c.hasMore = false
		batch = Batch{Page: next}
	default:
		c.items = append(c.items, page.Items...)
		c.page = next
		c.hasMore = page.HasMore
		c.reachedEnd = !page.HasMore
		batch = Batch{Items: page.Items, Page: next}
	}
	after := c.stateLocked()
	c.mu.Unlock()
	c.report(StateLoading, after)

	return batch, err
}

// Reset restores the current filter's first page and clears any error.
// An outstanding request is cancelled and its eventual result dropped; the
// controller reports StateLoading until that request has returned.
func (c *Controller) Reset() {
	c.mu.Lock()
	before := c.stateLocked()
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	c.restoreLocked()
	after := c.stateLocked()
	c.mu.Unlock()
	c.report(before, after)
}

// SetFilter switches to a new filter whose first page is initial. Setting
// the current filter again does nothing.
func (c *Controller) SetFilter(filter Filter, initial models.PostPage) {
	c.mu.Lock()
	if filter == c.filter {
		c.mu.Unlock()
		return
	}
	c.filter = filter
	c.initial = initial
	c.initialPage = 1
	c.mu.Unlock()
	c.Reset()
}

// Close cancels any outstanding request and drops its result.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
}

// Snapshot returns the current state. The Items slice is a copy.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.Post, len(c.items))
	copy(items, c.items)
	var reason error
	if c.emptyEnd {
		reason = content.ErrEmptyPage
	}
	return Snapshot{
		Items:      items,
		IsLoading:  c.inFlight,
		Err:        c.err,
		HasMore:    c.hasMore,
		ReachedEnd: c.reachedEnd,
		EndReason:  reason,
		Page:       c.page,
		State:      c.stateLocked(),
		Filter:     c.filter,
	}
}

// Filter returns the active filter.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) restoreLocked() {
	c.items = append([]models.Post(nil), c.initial.Items...)
	c.page = c.initialPage
	c.hasMore = c.initial.HasMore
	c.reachedEnd = !c.initial.HasMore
	c.emptyEnd = false
	c.err = nil
}

func (c *Controller) stateLocked() State {
	switch {
	case c.inFlight:
		return StateLoading
	case c.err != nil:
		return StateError
	case c.reachedEnd || !c.hasMore:
		return StateEnd
	default:
		return StateIdle
	}
}

func (c *Controller) report(from, to State) {
	if c.observer != nil && from != to {
		c.observer.ObserveTransition(from.String(), to.String())
	}
}
