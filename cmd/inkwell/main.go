// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the Inkwell blog frontend.
// It loads configuration, connects to the content API and the optional
// Valkey cache, sets up routing, and starts the HTTP server with graceful
// shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/content"
	"inkwell/internal/feed"
	"inkwell/internal/handlers"
	"inkwell/internal/imageproxy"
	"inkwell/internal/imageurl"
	"inkwell/internal/markdown"
	"inkwell/internal/metrics"
	"inkwell/internal/middleware"
	"inkwell/internal/render"
	"inkwell/internal/router"
	"inkwell/internal/sentinel"
)

// Newsletter sign-ups allowed per client IP and window.
const (
	subscribeLimit  = 5
	subscribeWindow = 10 * time.Minute
)

func main() {
	// Load configuration first so the log format can follow the environment.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"content_api", cfg.ContentAPIURL,
	)

	// API responses are cached in memory, and in Valkey too when configured.
	// Rendered post pages are only cached when Valkey is available.
	var (
		responses cache.Store = cache.NewMemory(cache.DefaultMemoryEntries, cfg.CacheTTL)
		pageCache *cache.PageCache
	)
	if cfg.ValkeyEnabled() {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()

		responses = &cache.Tiered{L1: responses, L2: cache.NewValkey(valkeyClient, cfg.CacheTTL)}
		pageCache = cache.NewPageCache(valkeyClient, cache.DefaultPageTTL)

		// Pages rendered by a previous release may use other templates.
		pageCache.InvalidateAll(context.Background())
	} else {
		slog.Warn("valkey not configured, using in-memory cache only")
	}

	normalizer, err := imageurl.New(cfg.InternalMediaURL, cfg.PublicMediaURL)
	if err != nil {
		slog.Error("invalid media URLs", "error", err)
		os.Exit(1)
	}

	client, err := content.New(content.Config{
		BaseURL:    cfg.ContentAPIURL,
		Normalizer: normalizer,
		Side:       imageurl.Server,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Cache:      responses,
		Observer:   metrics.Observer{},
	})
	if err != nil {
		slog.Error("failed to initialize content client", "error", err)
		os.Exit(1)
	}

	feeds := feed.NewRegistry(client, feed.RegistryOptions{
		PageSize: cfg.PageSize,
		Sentinel: sentinel.Options{
			Threshold:  cfg.ObserverThreshold,
			RootMargin: cfg.ObserverRootMargin,
		},
		Observer:    metrics.Observer{},
		TTL:         cfg.FeedSessionTTL,
		MaxSessions: cfg.FeedSessionMax,
	})

	proxy := imageproxy.New(imageproxy.Config{
		Normalizer:  normalizer,
		RemoteHosts: cfg.ImageRemoteHosts,
	})

	// In dev mode, templates load assets from CDN; in production they use
	// compiled local files embedded in the binary.
	renderer, err := render.New(render.Options{
		DevMode: cfg.IsDev(),
		Site: render.Site{
			Title:    cfg.SiteTitle,
			Subtitle: cfg.SiteSubtitle,
			URL:      cfg.SiteURL,
		},
		ImageURL:  proxy.URL,
		PublicURL: normalizer.ToPublic,
	})
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(subscribeLimit, subscribeWindow)
	defer limiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Handlers{
		Public:     handlers.NewPublic(renderer, client, feeds, markdown.New(proxy.URL), normalizer, pageCache),
		Feed:       handlers.NewFeed(renderer, client, feeds),
		Newsletter: handlers.NewNewsletter(renderer, client),
		Images:     handlers.NewImages(proxy),
	}, limiter, !cfg.IsDev())

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopGauge := make(chan struct{})
	go reportFeedSessions(feeds, stopGauge)

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)
	close(stopGauge)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// reportFeedSessions keeps the live feed session gauge current.
func reportFeedSessions(feeds *feed.Registry, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.SetFeedSessions(feeds.Len())
		case <-stop:
			return
		}
	}
}
