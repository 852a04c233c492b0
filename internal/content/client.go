// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content is the HTTP client for the remote content API. It fetches
// posts, featured posts, categories, the active theme, and handles newsletter
// subscriptions. Listing and lookup operations degrade to empty results on
// failure so pages always render; Subscribe is the one operation that
// returns its error to the caller.
//
// Every post returned by the client has its image fields passed through the
// image URL normaliser for the side (server or client) the client runs on.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"inkwell/internal/imageurl"
	"inkwell/internal/models"
)

const (
	// DefaultPageSize is the listing page size used when none is given.
	DefaultPageSize = 9

	// DefaultTimeout bounds a single API round trip.
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 8 << 20

	// cacheKeyPrefix namespaces cached API responses.
	cacheKeyPrefix = "api:"
)

// Cache stores raw API response bodies. Implementations apply their own TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// Observer receives one call per API round trip. status is 0 when the
// request failed before a response was received.
type Observer interface {
	ObserveRequest(op string, status int, duration time.Duration)
}

// Config holds the dependencies of a Client.
type Config struct {
	BaseURL    string // API root, e.g. "http://django:8000/api/v1"
	Normalizer *imageurl.Normalizer
	Side       imageurl.Side
	HTTPClient *http.Client // optional; defaults to a client with DefaultTimeout
	Cache      Cache        // optional
	Observer   Observer     // optional
}

// PostQuery selects one page of the post listing.
type PostQuery struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

// Client talks to the content API.
type Client struct {
	baseURL    string
	normalizer *imageurl.Normalizer
	side       imageurl.Side
	http       *http.Client
	cache      Cache
	observer   Observer
	group      singleflight.Group
}

// New creates a content API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("content: base URL is required")
	}
	if cfg.Normalizer == nil {
		return nil, fmt.Errorf("content: image URL normalizer is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		normalizer: cfg.Normalizer,
		side:       cfg.Side,
		http:       hc,
		cache:      cfg.Cache,
		observer:   cfg.Observer,
	}, nil
}

// ListPosts returns one page of published posts. Failures are logged and
// reported as an empty, final page.
func (c *Client) ListPosts(ctx context.Context, q PostQuery) models.PostPage {
	page, err := c.FetchPosts(ctx, q)
	if err != nil {
		slog.Error("list posts failed", "error", err, "page", q.Page, "category", q.Category, "search", q.Search)
		return models.PostPage{Items: []models.Post{}}
	}
	return page
}

// FetchPosts is ListPosts with the failure returned instead of swallowed.
// The error is a *NetworkError or *HTTPError.
func (c *Client) FetchPosts(ctx context.Context, q PostQuery) (models.PostPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	body, err := c.get(ctx, "list_posts", "/posts/", params, false)
	if err != nil {
		return models.PostPage{}, err
	}

	page, err := decodePage(body)
	if err != nil {
		return models.PostPage{}, &NetworkError{Op: "list_posts", Err: err}
	}
	c.normalizer.Posts(page.Items, c.side)
	return page, nil
}

// GetPost returns the post with the given slug, or nil when it does not
// exist or the lookup failed.
func (c *Client) GetPost(ctx context.Context, slug string) *models.Post {
	post, err := c.LookupPost(ctx, slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Error("get post failed", "error", err, "slug", slug)
		}
		return nil
	}
	return post
}

// LookupPost returns the post with the given slug. A 404 yields an error
// matching ErrNotFound; other failures are returned as-is.
func (c *Client) LookupPost(ctx context.Context, slug string) (*models.Post, error) {
	if slug == "" {
		return nil, ErrNotFound
	}
	body, err := c.get(ctx, "get_post", "/posts/"+url.PathEscape(slug)+"/", nil, true)
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, &NetworkError{Op: "get_post", Err: fmt.Errorf("decode post: %w", err)}
	}
	c.normalizer.Post(&post, c.side)
	return &post, nil
}

// ListFeaturedPosts returns featured posts, optionally limited to a category.
// Failures yield an empty slice.
func (c *Client) ListFeaturedPosts(ctx context.Context, category string) []models.Post {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}

	body, err := c.get(ctx, "featured_posts", "/featured-posts/", params, true)
	if err != nil {
		slog.Error("list featured posts failed", "error", err, "category", category)
		return []models.Post{}
	}

	posts, _, err := decodeList[models.Post](body)
	if err != nil {
		slog.Error("decode featured posts failed", "error", err)
		return []models.Post{}
	}
	c.normalizer.Posts(posts, c.side)
	return posts
}

// GetActiveTheme returns the active theme, or nil on any failure.
func (c *Client) GetActiveTheme(ctx context.Context) *models.Theme {
	body, err := c.get(ctx, "theme", "/theme/", nil, true)
	if err != nil {
		slog.Error("get theme failed", "error", err)
		return nil
	}

	var theme models.Theme
	if err := json.Unmarshal(body, &theme); err != nil {
		slog.Error("decode theme failed", "error", err)
		return nil
	}
	c.normalizer.Theme(&theme, c.side)
	return &theme
}

// ListCategories returns all categories. Failures yield an empty slice.
func (c *Client) ListCategories(ctx context.Context) []models.Category {
	body, err := c.get(ctx, "categories", "/categories/", nil, true)
	if err != nil {
		slog.Error("list categories failed", "error", err)
		return []models.Category{}
	}

	cats, _, err := decodeList[models.Category](body)
	if err != nil {
		slog.Error("decode categories failed", "error", err)
		return []models.Category{}
	}
	return cats
}

// Subscribe signs an email address up for the newsletter. Unlike the other
// operations its failure is returned, since the caller must show it.
func (c *Client) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return nil, fmt.Errorf("content: subscribe marshal: %w", err)
	}

	body, err := c.do(ctx, "subscribe", http.MethodPost, c.baseURL+"/subscribe/", payload)
	if err != nil {
		slog.Warn("subscribe failed", "error", err)
		return nil, err
	}

	var sub models.Subscriber
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, &NetworkError{Op: "subscribe", Err: fmt.Errorf("decode subscriber: %w", err)}
	}
	return &sub, nil
}

// get performs a GET, consulting the cache when cacheable is set. Identical
// concurrent requests share one round trip.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, cacheable bool) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	useCache := cacheable && c.cache != nil
	if useCache {
		if body, ok := c.cache.Get(ctx, cacheKeyPrefix+target); ok {
			return body, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	// The shared round trip outlives any one caller; only the HTTP client
	// timeout bounds it. Each caller still stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(target, func() (any, error) {
		return c.do(shared, op, http.MethodGet, target, nil)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &NetworkError{Op: op, Err: ctx.Err()}
	}
	if res.Err != nil {
		return nil, res.Err
	}
	body := res.Val.([]byte)

	if useCache {
		c.cache.Set(ctx, cacheKeyPrefix+target, body)
	}
	return body, nil
}

// do performs one HTTP round trip and classifies failures.
func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Op: op, StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}

	slog.Debug("content api request", "op", op, "status", resp.StatusCode, "duration", time.Since(start).String())
	return body, nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, time.Since(start))
	}
}
