// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"inkwell/internal/content"
	"inkwell/internal/feed"
	"inkwell/internal/models"
	"inkwell/internal/render"
	"inkwell/internal/sentinel"
)

// loadErrorMessage is shown in the inline error box of a failed page load.
const loadErrorMessage = "Could not load more posts."

// Feed serves the HTMX fragments that drive infinite scroll: sentinel
// visibility reports, retries, and category switches on a live feed.
type Feed struct {
	renderer *render.Renderer
	content  *content.Client
	feeds    *feed.Registry
}

// NewFeed creates a new Feed handler group.
func NewFeed(renderer *render.Renderer, client *content.Client, feeds *feed.Registry) *Feed {
	return &Feed{renderer: renderer, content: client, feeds: feeds}
}

// More handles a visibility report from a sentinel, or a click on the
// retry button when retry=1. It answers 204 when the report did not lead
// to a page load, and otherwise the new cards followed by the next tail.
//
// The request also carries the session's filter and last page, so a
// session that expired server-side is recreated where the browser left it.
func (f *Feed) More(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	target := q.Get("target")

	page, _ := strconv.Atoi(q.Get("page"))
	filter := feed.Filter{
		Category: cleanCategory(q.Get("category")),
		Search:   cleanSearch(q.Get("q")),
	}
	session, err := f.feeds.Resume(id, filter, page)
	if err != nil {
		http.Error(w, "invalid feed", http.StatusBadRequest)
		return
	}
	if session.Watcher.Target() == "" {
		session.Watcher.Observe(target)
	}

	var (
		batch feed.Batch
		fired bool
	)
	if q.Get("retry") == "1" {
		batch, err = session.Retry(ctx)
		fired = true
	} else {
		ratio, _ := strconv.ParseFloat(q.Get("ratio"), 64)
		batch, fired, err = session.Visible(ctx, sentinel.Event{
			Target:  target,
			Visible: q.Get("visible") == "1",
			Ratio:   ratio,
		})
	}

	switch {
	case errors.Is(err, sentinel.ErrDetached):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		slog.Warn("feed page load failed", "feed", id, "error", err)
	case !fired || batch.Skipped || batch.Stale:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	view := newFeedView(session, session.Controller.Snapshot(), batch.Items, false)
	f.renderer.Partial(w, http.StatusOK, "feed_more", view)
}

// Filter switches a live feed to another category and returns the rebuilt
// feed together with the featured posts for that category. A feed that has
// expired is replaced by a new one.
func (f *Feed) Filter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	category := cleanCategory(r.URL.Query().Get("category"))

	session, ok := f.feeds.Get(id)
	filter := feed.Filter{Category: category}
	if ok {
		filter.Search = session.Controller.Filter().Search
	}

	var (
		first    models.PostPage
		featured []models.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		first = f.content.ListPosts(gctx, content.PostQuery{
			Page:     1,
			Limit:    f.feeds.PageSize(),
			Category: filter.Category,
			Search:   filter.Search,
		})
		return gctx.Err()
	})
	if filter.Search == "" {
		g.Go(func() error {
			featured = f.content.ListFeaturedPosts(gctx, filter.Category)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Debug("feed filter abandoned", "feed", id, "error", err)
		return
	}

	if ok {
		session.Controller.SetFilter(filter, first)
	} else {
		session = f.feeds.Create(filter, first)
	}

	snap := session.Controller.Snapshot()
	f.renderer.Partial(w, http.StatusOK, "feed_filter", &render.FilterView{
		Feed:     newFeedView(session, snap, snap.Items, true),
		Featured: featured,
	})
}

// newFeedView builds the view of a feed render: items are the cards to
// draw and the tail reflects the controller state in snap. initial marks a
// render of the whole feed, where an ended feed with no items shows the
// empty message.
func newFeedView(s *feed.Session, snap feed.Snapshot, items []models.Post, initial bool) *render.FeedView {
	opts := s.Watcher.Options()
	tail := render.Tail{
		State:      snap.State.String(),
		Target:     s.NextTarget(),
		Threshold:  opts.Threshold,
		RootMargin: opts.RootMargin,
		Empty:      initial && len(snap.Items) == 0 && snap.State == feed.StateEnd,
	}

	params := url.Values{
		"target": {tail.Target},
		"page":   {strconv.Itoa(snap.Page)},
	}
	if snap.Filter.Category != "" {
		params.Set("category", snap.Filter.Category)
	}
	if snap.Filter.Search != "" {
		params.Set("q", snap.Filter.Search)
	}
	base := "/feed/" + url.PathEscape(s.ID) + "/more?"
	tail.MoreURL = base + params.Encode()
	params.Set("retry", "1")
	tail.RetryURL = base + params.Encode()

	if snap.Err != nil {
		tail.Error = loadErrorMessage
	}

	return &render.FeedView{ID: s.ID, Items: items, Tail: tail}
}
