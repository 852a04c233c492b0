// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a cached API response stays fresh.
	DefaultTTL = 60 * time.Second

	// DefaultMemoryEntries bounds the in-process cache.
	DefaultMemoryEntries = 512

	// responseKeyPrefix namespaces API responses in Valkey.
	responseKeyPrefix = "resp:"
)

// Store is a byte cache keyed by string. Misses and backend errors both
// report ok=false; a failing cache never fails the request.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

// Memory is an in-process LRU cache with per-entry expiry (L1).
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates an in-process cache holding at most size entries for ttl.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached value for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

// Set stores val under key.
func (m *Memory) Set(_ context.Context, key string, val []byte) {
	m.lru.Add(key, val)
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Valkey caches API responses in Valkey (L2) so several frontend replicas
// share one warm cache.
type Valkey struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkey creates a response cache on the given client.
func NewValkey(client *redis.Client, ttl time.Duration) *Valkey {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Valkey{client: client, ttl: ttl}
}

// Get returns the cached response for key.
func (v *Valkey) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := v.client.Get(ctx, responseKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// Set stores a response with the configured TTL.
func (v *Valkey) Set(ctx context.Context, key string, val []byte) {
	if err := v.client.Set(ctx, responseKeyPrefix+key, val, v.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "key", key, "error", err)
	}
}

// Tiered checks a fast local cache before a shared one. L2 hits are copied
// into L1.
type Tiered struct {
	L1 Store
	L2 Store
}

// Get looks in L1, then L2.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := t.L1.Get(ctx, key); ok {
		return val, true
	}
	val, ok := t.L2.Get(ctx, key)
	if ok {
		t.L1.Set(ctx, key, val)
	}
	return val, ok
}

// Set writes through to both tiers.
func (t *Tiered) Set(ctx context.Context, key string, val []byte) {
	t.L1.Set(ctx, key, val)
	t.L2.Set(ctx, key, val)
}
