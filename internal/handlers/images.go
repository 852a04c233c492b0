// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"inkwell/internal/imageproxy"
)

// imageCacheControl lets browsers and CDNs keep proxied images for a day.
const imageCacheControl = "public, max-age=86400, stale-while-revalidate=604800"

// Images serves post and theme images through the image proxy.
type Images struct {
	proxy *imageproxy.Proxy
}

// NewImages creates a new Images handler.
func NewImages(proxy *imageproxy.Proxy) *Images {
	return &Images{proxy: proxy}
}

// Serve fetches ?src= through the proxy and writes the image bytes.
func (i *Images) Serve(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	img, err := i.proxy.Fetch(r.Context(), src)
	if err != nil {
		status := imageErrorStatus(err)
		if status == 0 {
			return
		}
		if status >= http.StatusInternalServerError {
			slog.Warn("image proxy fetch failed", "src", src, "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	h := w.Header()
	h.Set("Content-Type", img.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(img.Body)))
	h.Set("Cache-Control", imageCacheControl)
	w.Write(img.Body)
}

// imageErrorStatus maps a proxy error to a response status. It returns 0
// when the client has gone away and nothing should be written.
func imageErrorStatus(err error) int {
	var upstream *imageproxy.UpstreamError
	switch {
	case errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, imageproxy.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, imageproxy.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
