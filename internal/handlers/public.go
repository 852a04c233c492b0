// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Inkwell blog.
// Handlers are grouped by concern (public pages, feed fragments, newsletter,
// images) and receive their dependencies through the handler struct.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"inkwell/internal/cache"
	"inkwell/internal/content"
	"inkwell/internal/feed"
	"inkwell/internal/imageurl"
	"inkwell/internal/markdown"
	"inkwell/internal/models"
	"inkwell/internal/render"
	"inkwell/internal/slug"
)

// Public groups handlers for the server-rendered pages. Post pages are
// served from the page cache when one is configured; pages that carry a
// live feed are always rendered fresh.
type Public struct {
	renderer   *render.Renderer
	content    *content.Client
	feeds      *feed.Registry
	markdown   *markdown.Renderer
	normalizer *imageurl.Normalizer
	pageCache  *cache.PageCache
}

// NewPublic creates a new Public handler group. pageCache may be nil when
// Valkey is not configured.
func NewPublic(renderer *render.Renderer, client *content.Client, feeds *feed.Registry, md *markdown.Renderer, normalizer *imageurl.Normalizer, pageCache *cache.PageCache) *Public {
	return &Public{
		renderer:   renderer,
		content:    client,
		feeds:      feeds,
		markdown:   md,
		normalizer: normalizer,
		pageCache:  pageCache,
	}
}

// Home renders the homepage: hero, featured posts, and the latest posts
// with infinite scroll. ?category= narrows both the grid and the featured
// posts.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	category := cleanCategory(r.URL.Query().Get("category"))
	site := p.renderer.Site()

	p.feedPage(w, r, "home", feed.Filter{Category: category}, &render.PageData{
		ActiveCategory: category,
		Meta: render.Meta{
			Description: site.Subtitle,
			URL:         site.URL + "/",
		},
	})
}

// Category renders the post grid for one category.
func (p *Public) Category(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	if !slug.Valid(slugParam) {
		p.NotFound(w, r)
		return
	}

	data := &render.PageData{
		ActiveCategory: slugParam,
		Meta:           render.Meta{URL: p.renderer.Site().URL + "/category/" + url.PathEscape(slugParam)},
	}
	p.feedPage(w, r, "category", feed.Filter{Category: slugParam}, data)
}

// Search renders the search form and, when ?q= is set, the matching posts.
func (p *Public) Search(w http.ResponseWriter, r *http.Request) {
	q := cleanSearch(r.URL.Query().Get("q"))
	data := &render.PageData{Title: "Search", Query: q}
	if q == "" {
		theme, categories := p.chrome(r.Context())
		data.Theme = theme
		data.Categories = categories
		p.renderer.Page(w, r, "search", data)
		return
	}
	data.Title = "Search: " + q
	p.feedPage(w, r, "search", feed.Filter{Search: q}, data)
}

// Post renders a single post by slug. Rendered pages are cached; the
// cached bytes carry no per-visitor data.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugParam := chi.URLParam(r, "slug")
	if !slug.Valid(slugParam) {
		p.NotFound(w, r)
		return
	}

	key := cache.PostKey(slugParam)
	htmx := r.Header.Get("HX-Request") == "true"
	if p.pageCache != nil && !htmx {
		if cached, ok := p.pageCache.Get(ctx, key); ok {
			writeHTML(w, cached)
			return
		}
	}

	var (
		post       *models.Post
		postErr    error
		theme      *models.Theme
		categories []models.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		post, postErr = p.content.LookupPost(gctx, slugParam)
		return nil
	})
	g.Go(func() error {
		theme, categories = p.chrome(gctx)
		return nil
	})
	_ = g.Wait()

	switch {
	case errors.Is(postErr, content.ErrNotFound):
		p.NotFound(w, r)
		return
	case postErr != nil:
		slog.Error("get post failed", "slug", slugParam, "error", postErr)
		p.Unavailable(w, r)
		return
	}

	body, err := p.markdown.Render(post.Content)
	if err != nil {
		slog.Error("render post body failed", "slug", slugParam, "error", err)
		p.renderError(w, r, http.StatusInternalServerError, "This post could not be displayed.")
		return
	}

	site := p.renderer.Site()
	data := &render.PageData{
		Title:      post.Title,
		Theme:      theme,
		Categories: categories,
		Post:       post,
		Body:       body,
		Meta: render.Meta{
			Description: post.Summary(),
			Image:       p.normalizer.ToPublic(post.FeaturedImage),
			URL:         site.URL + "/posts/" + url.PathEscape(post.Slug),
			Type:        "article",
		},
	}

	if htmx {
		p.renderer.Page(w, r, "post", data)
		return
	}

	out, err := p.renderer.RenderPage("post", data)
	if err != nil {
		slog.Error("render post page failed", "slug", slugParam, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	if p.pageCache != nil {
		p.pageCache.Set(ctx, key, out)
	}
	writeHTML(w, out)
}

// NotFound renders the 404 page.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	theme, categories := p.chrome(r.Context())
	p.renderer.Page(w, r, "not_found", &render.PageData{
		Title:      "Page not found",
		Theme:      theme,
		Categories: categories,
		Status:     http.StatusNotFound,
	})
}

// Unavailable renders the 502 page shown when the content API fails on a
// request that cannot degrade to an empty result.
func (p *Public) Unavailable(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusBadGateway, "The blog is temporarily unavailable.")
}

func (p *Public) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p.renderer.Page(w, r, "error", &render.PageData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: msg,
	})
}

// feedPage fetches everything a page with a post grid needs in parallel,
// starts a feed session seeded with the first page, and renders it.
func (p *Public) feedPage(w http.ResponseWriter, r *http.Request, name string, filter feed.Filter, data *render.PageData) {
	ctx := r.Context()

	var (
		theme      *models.Theme
		categories []models.Category
		featured   []models.Post
		first      models.PostPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		theme, categories = p.chrome(gctx)
		return nil
	})
	if filter.Search == "" {
		g.Go(func() error {
			featured = p.content.ListFeaturedPosts(gctx, filter.Category)
			return nil
		})
	}
	g.Go(func() error {
		first = p.content.ListPosts(gctx, content.PostQuery{
			Page:     1,
			Limit:    p.feeds.PageSize(),
			Category: filter.Category,
			Search:   filter.Search,
		})
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		slog.Debug("page fetch abandoned", "page", name, "error", err)
		return
	}

	if name == "category" {
		cat, ok := findCategory(categories, filter.Category)
		if !ok && len(categories) > 0 {
			p.NotFound(w, r)
			return
		}
		data.Title = cat.Name
		data.Meta.Description = cat.Description
	}

	session := p.feeds.Create(filter, first)

	data.Theme = theme
	data.Categories = categories
	data.Featured = featured
	data.Feed = newFeedView(session, session.Controller.Snapshot(), first.Items, true)
	p.renderer.Page(w, r, name, data)
}

// chrome fetches the theme and the category navigation shared by every
// page. Both degrade to their defaults on failure.
func (p *Public) chrome(ctx context.Context) (*models.Theme, []models.Category) {
	var (
		theme      *models.Theme
		categories []models.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		theme = p.content.GetActiveTheme(gctx)
		return nil
	})
	g.Go(func() error {
		categories = navCategories(p.content.ListCategories(gctx))
		return nil
	})
	_ = g.Wait()
	return theme, categories
}

// navCategories fills in slugs the API left empty so every category can
// be linked.
func navCategories(cats []models.Category) []models.Category {
	out := make([]models.Category, 0, len(cats))
	for _, c := range cats {
		if c.Slug == "" {
			c.Slug = slug.Generate(c.Name)
		}
		if c.Slug == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// findCategory returns the category with the given slug. When it is not
// in the list, a category named after the slug is returned.
func findCategory(cats []models.Category, s string) (models.Category, bool) {
	for _, c := range cats {
		if c.Slug == s {
			return c, true
		}
	}
	return models.Category{Name: s, Slug: s}, false
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}
