// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client connected to an in-process
// miniredis server that is torn down with the test.
func testValkeyClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestConnectValkey(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectValkey(mr.Host(), mr.Port(), "")
	if err != nil {
		t.Fatalf("ConnectValkey: %v", err)
	}
	defer client.Close()

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestConnectValkey_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	if _, err := ConnectValkey(host, port, ""); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestPageCacheSetAndGet(t *testing.T) {
	client, _ := testValkeyClient(t)
	pc := NewPageCache(client, 1*time.Minute)

	ctx := context.Background()

	// Miss.
	data, ok := pc.Get(ctx, PostKey("hello"))
	if ok {
		t.Error("expected cache miss")
	}
	if data != nil {
		t.Error("expected nil data on miss")
	}

	html := []byte("<html><body>Hello</body></html>")
	pc.Set(ctx, PostKey("hello"), html)

	data, ok = pc.Get(ctx, PostKey("hello"))
	if !ok {
		t.Error("expected cache hit")
	}
	if string(data) != string(html) {
		t.Errorf("data mismatch: got %q, want %q", data, html)
	}
}

func TestPageCacheExpires(t *testing.T) {
	client, mr := testValkeyClient(t)
	pc := NewPageCache(client, 30*time.Second)
	ctx := context.Background()

	pc.Set(ctx, "k", []byte("v"))
	mr.FastForward(31 * time.Second)

	if _, ok := pc.Get(ctx, "k"); ok {
		t.Error("expected miss after TTL")
	}
}

func TestPageCacheInvalidate(t *testing.T) {
	client, _ := testValkeyClient(t)
	pc := NewPageCache(client, 1*time.Minute)
	ctx := context.Background()

	pc.Set(ctx, "invalidate-me", []byte("cached"))
	if _, ok := pc.Get(ctx, "invalidate-me"); !ok {
		t.Fatal("expected cache hit before invalidation")
	}

	pc.Invalidate(ctx, "invalidate-me")

	if _, ok := pc.Get(ctx, "invalidate-me"); ok {
		t.Error("expected cache miss after invalidation")
	}
}

func TestPageCacheInvalidateAll(t *testing.T) {
	client, _ := testValkeyClient(t)
	pc := NewPageCache(client, 1*time.Minute)
	ctx := context.Background()

	pc.Set(ctx, "page-a", []byte("a"))
	pc.Set(ctx, "page-b", []byte("b"))
	pc.Set(ctx, "page-c", []byte("c"))
	client.Set(ctx, "unrelated", "keep", 0)

	pc.InvalidateAll(ctx)

	for _, key := range []string{"page-a", "page-b", "page-c"} {
		if _, ok := pc.Get(ctx, key); ok {
			t.Errorf("expected miss for %q after InvalidateAll", key)
		}
	}
	if v, _ := client.Get(ctx, "unrelated").Result(); v != "keep" {
		t.Error("InvalidateAll removed a key outside its prefix")
	}
}

func TestPostKey(t *testing.T) {
	if got := PostKey("about-us"); got != "post:about-us" {
		t.Errorf("PostKey: got %q", got)
	}
}

func TestNewPageCacheDefaultTTL(t *testing.T) {
	client, _ := testValkeyClient(t)

	pc := NewPageCache(client, 0)
	if pc.ttl != DefaultPageTTL {
		t.Errorf("expected DefaultPageTTL (%v), got %v", DefaultPageTTL, pc.ttl)
	}
}

func TestValkeyStore(t *testing.T) {
	client, mr := testValkeyClient(t)
	v := NewValkey(client, 10*time.Second)
	ctx := context.Background()

	if _, ok := v.Get(ctx, "api:x"); ok {
		t.Fatal("expected miss")
	}
	v.Set(ctx, "api:x", []byte(`{"a":1}`))

	got, ok := v.Get(ctx, "api:x")
	if !ok || string(got) != `{"a":1}` {
		t.Errorf("Get = %q, %v", got, ok)
	}
	if !mr.Exists(responseKeyPrefix + "api:x") {
		t.Error("expected prefixed key in valkey")
	}

	mr.FastForward(11 * time.Second)
	if _, ok := v.Get(ctx, "api:x"); ok {
		t.Error("expected miss after TTL")
	}
}

func TestValkeyStore_BackendDown(t *testing.T) {
	client, mr := testValkeyClient(t)
	v := NewValkey(client, time.Minute)
	mr.Close()

	ctx := context.Background()
	v.Set(ctx, "k", []byte("v"))
	if _, ok := v.Get(ctx, "k"); ok {
		t.Error("expected miss when backend is down")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory(2, time.Minute)
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"))
	m.Set(ctx, "b", []byte("2"))
	m.Set(ctx, "c", []byte("3"))

	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if got, ok := m.Get(ctx, "c"); !ok || string(got) != "3" {
		t.Errorf("Get(c) = %q, %v", got, ok)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(10, 20*time.Millisecond)
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"))
	time.Sleep(60 * time.Millisecond)
	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("expected entry to expire")
	}
}

func TestTiered(t *testing.T) {
	client, _ := testValkeyClient(t)
	l1 := NewMemory(10, time.Minute)
	l2 := NewValkey(client, time.Minute)
	tc := &Tiered{L1: l1, L2: l2}
	ctx := context.Background()

	l2.Set(ctx, "shared", []byte("from-l2"))

	got, ok := tc.Get(ctx, "shared")
	if !ok || string(got) != "from-l2" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := l1.Get(ctx, "shared"); !ok {
		t.Error("L2 hit should be copied into L1")
	}

	tc.Set(ctx, "both", []byte("x"))
	if _, ok := l1.Get(ctx, "both"); !ok {
		t.Error("Set should write L1")
	}
	if _, ok := l2.Get(ctx, "both"); !ok {
		t.Error("Set should write L2")
	}
}
