// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imageproxy serves post and theme images to browsers from the
// frontend's own origin. Images on the internal media host are unreachable
// from outside, so the proxy fetches them server-side, keeps the bytes in
// an in-process LRU, and collapses concurrent fetches of the same image.
// Upstream fetches are rate-limited per host.
package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"inkwell/internal/imageurl"
	"inkwell/internal/metrics"
)

const (
	// Path is the route the proxy is mounted on.
	Path = "/img"

	defaultMaxBytes  = 10 << 20
	defaultCacheSize = 256
	defaultCacheTTL  = time.Hour
	defaultHostRate  = 20 // fetches per second per upstream host
	defaultHostBurst = 20
)

var (
	// ErrInvalid is returned for a missing or unparsable source URL.
	ErrInvalid = errors.New("imageproxy: invalid source")

	// ErrForbidden is returned for a source on a host the proxy may not fetch.
	ErrForbidden = errors.New("imageproxy: host not allowed")

	// ErrNotImage is returned when the upstream answers with a non-image body.
	ErrNotImage = errors.New("imageproxy: not an image")

	// ErrTooLarge is returned when the upstream body exceeds the size limit.
	ErrTooLarge = errors.New("imageproxy: image too large")
)

// UpstreamError carries a non-200 upstream status.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("imageproxy: upstream status %d", e.StatusCode)
}

// Config holds the dependencies of a Proxy.
type Config struct {
	Normalizer  *imageurl.Normalizer
	RemoteHosts []string // extra hostnames allowed besides the media hosts
	HTTPClient  *http.Client
	MaxBytes    int64
	CacheSize   int
	CacheTTL    time.Duration
	HostRate    float64
	HostBurst   int
}

// Image is a fetched image body.
type Image struct {
	ContentType string
	Body        []byte
}

// Proxy fetches and caches images. It is safe for concurrent use.
type Proxy struct {
	normalizer *imageurl.Normalizer
	remote     map[string]bool
	http       *http.Client
	maxBytes   int64
	hostRate   rate.Limit
	hostBurst  int

	cache *expirable.LRU[string, *Image]
	group singleflight.Group

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Proxy.
func New(cfg Config) *Proxy {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.HostRate <= 0 {
		cfg.HostRate = defaultHostRate
	}
	if cfg.HostBurst <= 0 {
		cfg.HostBurst = defaultHostBurst
	}

	remote := make(map[string]bool, len(cfg.RemoteHosts))
	for _, h := range cfg.RemoteHosts {
		remote[strings.ToLower(h)] = true
	}

	return &Proxy{
		normalizer: cfg.Normalizer,
		remote:     remote,
		http:       cfg.HTTPClient,
		maxBytes:   cfg.MaxBytes,
		hostRate:   rate.Limit(cfg.HostRate),
		hostBurst:  cfg.HostBurst,
		cache:      expirable.NewLRU[string, *Image](cfg.CacheSize, nil, cfg.CacheTTL),
		limiters:   make(map[string]*rate.Limiter),
	}
}

// URL returns the address a browser should load raw from. Data URIs are
// returned unchanged, images on hosts the proxy may fetch are routed
// through it, and anything else resolves to its public URL.
func (p *Proxy) URL(raw string) string {
	public := p.normalizer.ToPublic(raw)
	if public == "" || strings.HasPrefix(strings.ToLower(public), "data:") {
		return public
	}
	u, err := url.Parse(public)
	if err != nil || !p.allowed(u) {
		return public
	}
	return Path + "?src=" + url.QueryEscape(public)
}

// Fetch returns the image at src, from cache when possible. src may use
// the public or the internal host; it is fetched from the internal one.
func (p *Proxy) Fetch(ctx context.Context, src string) (*Image, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrInvalid
	}
	target := p.normalizer.Normalize(src, imageurl.Server)
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		metrics.RecordImage("rejected")
		return nil, ErrInvalid
	}
	if !p.allowed(u) {
		metrics.RecordImage("rejected")
		return nil, ErrForbidden
	}

	if img, ok := p.cache.Get(target); ok {
		metrics.RecordImage("hit")
		return img, nil
	}

	v, err, _ := p.group.Do(target, func() (any, error) {
		if img, ok := p.cache.Get(target); ok {
			return img, nil
		}
		img, err := p.fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		p.cache.Add(target, img)
		metrics.RecordImage("miss")
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Image), nil
}

func (p *Proxy) fetch(ctx context.Context, u *url.URL) (*Image, error) {
	if err := p.limiterFor(u.Host).Wait(ctx); err != nil {
		metrics.RecordImage("limited")
		return nil, fmt.Errorf("imageproxy: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("imageproxy: build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.http.Do(req)
	if err != nil {
		metrics.RecordImage("error")
		return nil, fmt.Errorf("imageproxy: fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordImage("error")
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)
	if !strings.HasPrefix(mediaType, "image/") {
		metrics.RecordImage("error")
		return nil, ErrNotImage
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		metrics.RecordImage("error")
		return nil, fmt.Errorf("imageproxy: read body: %w", err)
	}
	if int64(len(body)) > p.maxBytes {
		metrics.RecordImage("error")
		return nil, ErrTooLarge
	}

	slog.Debug("image fetched", "host", u.Host, "path", u.Path, "bytes", len(body))
	return &Image{ContentType: ct, Body: body}, nil
}

// allowed reports whether the proxy may fetch from u's host.
func (p *Proxy) allowed(u *url.URL) bool {
	return p.normalizer.IsKnownHost(u) || p.remote[strings.ToLower(u.Hostname())]
}

// limiterFor returns the upstream limiter for host, creating it on first use.
func (p *Proxy) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(p.hostRate, p.hostBurst)
		p.limiters[host] = l
	}
	return l
}
