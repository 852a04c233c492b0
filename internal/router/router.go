// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// Inkwell frontend. Pages and feed fragments share one middleware stack;
// assets, images and probes skip the CSRF cookie.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inkwell/internal/handlers"
	"inkwell/internal/imageproxy"
	"inkwell/internal/middleware"
	"inkwell/web"
)

// staticCacheControl applies to the embedded CSS and JS.
const staticCacheControl = "public, max-age=3600"

// Handlers bundles the handler groups the router dispatches to.
type Handlers struct {
	Public     *handlers.Public
	Feed       *handlers.Feed
	Newsletter *handlers.Newsletter
	Images     *handlers.Images
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. subscribeLimit throttles newsletter sign-ups
// per client and may be nil.
func New(h Handlers, subscribeLimit *middleware.RateLimiter, secureCookies bool) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Probes and assets: no cookies.
	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", staticHandler())
	r.Get(imageproxy.Path, h.Images.Serve)

	// Pages, feed fragments and the newsletter form.
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(secureCookies))

		r.Get("/", h.Public.Home)
		r.Get("/category/{slug}", h.Public.Category)
		r.Get("/search", h.Public.Search)
		r.Get("/posts/{slug}", h.Public.Post)

		r.Route("/feed/{id}", func(r chi.Router) {
			r.Get("/more", h.Feed.More)
			r.Get("/filter", h.Feed.Filter)
		})

		r.Group(func(r chi.Router) {
			if subscribeLimit != nil {
				r.Use(subscribeLimit.Middleware)
			}
			r.Post("/subscribe", h.Newsletter.Subscribe)
		})

		r.NotFound(h.Public.NotFound)
	})

	return r
}

// staticHandler serves the embedded web/static tree under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", staticCacheControl)
		files.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
