// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"inkwell/internal/models"
	"inkwell/internal/sentinel"
)

const (
	// DefaultSessionTTL is how long an untouched feed session lives.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultMaxSessions bounds the number of live feed sessions.
	DefaultMaxSessions = 10000
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	PageSize    int
	Sentinel    sentinel.Options
	Observer    Observer
	TTL         time.Duration
	MaxSessions int
}

// Registry holds live feed sessions keyed by id. Sessions expire after a
// period without use or when the registry is full; an expired session is
// closed, which cancels its outstanding request.
type Registry struct {
	fetch    PageFetcher
	opts     RegistryOptions
	sessions *expirable.LRU[string, *Session]
	mu       sync.Mutex
}

// NewRegistry creates an empty registry that loads pages through fetch.
func NewRegistry(fetch PageFetcher, opts RegistryOptions) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	r := &Registry{fetch: fetch, opts: opts}
	r.sessions = expirable.NewLRU[string, *Session](opts.MaxSessions, func(id string, s *Session) {
		s.Close()
		slog.Debug("feed session closed", "id", id)
	}, opts.TTL)
	return r
}

// PageSize returns the configured page size.
func (r *Registry) PageSize() int { return r.opts.PageSize }

// SentinelOptions returns the observer options rendered into sentinels.
func (r *Registry) SentinelOptions() sentinel.Options { return r.opts.Sentinel }

// Create starts a new session for filter seeded with its first page.
func (r *Registry) Create(filter Filter, initial models.PostPage) *Session {
	s := r.newSession(uuid.NewString(), filter, 1, initial)
	r.sessions.Add(s.ID, s)
	return s
}

// Get returns the live session with the given id and extends its lifetime.
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions.Get(id)
	if ok {
		r.sessions.Add(id, s)
	}
	return s, ok
}

// Resume returns the session with the given id, recreating it when it has
// expired. A recreated session continues after page, the last page the
// browser already shows, with an unknown remainder assumed to exist.
func (r *Registry) Resume(id string, filter Filter, page int) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("feed: invalid session id %q: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.Get(id); ok {
		return s, nil
	}
	if page < 1 {
		page = 1
	}
	s := r.newSession(id, filter, page, models.PostPage{HasMore: true})
	r.sessions.Add(id, s)
	slog.Info("feed session resumed", "id", id, "page", page, "category", filter.Category, "search", filter.Search)
	return s, nil
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) {
	r.sessions.Remove(id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) newSession(id string, filter Filter, page int, initial models.PostPage) *Session {
	ctrl := NewController(r.fetch, Options{
		PageSize:    r.opts.PageSize,
		InitialPage: page,
		Filter:      filter,
		Initial:     initial,
		Observer:    r.opts.Observer,
	})
	return newSession(id, ctrl, r.opts.Sentinel)
}
