package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"inkwell/internal/imageproxy"
)

func TestImages_Serve(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, imageproxy.Path+"?src="+url.QueryEscape(testPublicBase+"/media/post-1.jpg"))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != imageCacheControl {
		t.Errorf("Cache-Control: got %q", cc)
	}
	if w.Body.String() != "\xff\xd8\xff\xe0fake-jpeg" {
		t.Errorf("body: got %q", w.Body.String())
	}

	// The same image again comes from the proxy cache.
	env.get(t, imageproxy.Path+"?src="+url.QueryEscape(env.srv.URL+"/media/post-1.jpg"))
	if n := env.api.hitCount("/media/post-1.jpg"); n != 1 {
		t.Errorf("upstream fetches: got %d, want 1", n)
	}

	tests := []struct {
		name string
		src  string
		want int
	}{
		{"missing src", "", http.StatusBadRequest},
		{"foreign host", "https://evil.example.com/a.jpg", http.StatusForbidden},
		{"upstream 404", testPublicBase + "/media/missing.jpg", http.StatusNotFound},
		{"not an image", testPublicBase + "/media/doc.txt", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(t, imageproxy.Path+"?src="+url.QueryEscape(tt.src))
			if w.Code != tt.want {
				t.Errorf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestImageErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{imageproxy.ErrInvalid, http.StatusBadRequest},
		{imageproxy.ErrForbidden, http.StatusForbidden},
		{&imageproxy.UpstreamError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{&imageproxy.UpstreamError{StatusCode: http.StatusInternalServerError}, http.StatusBadGateway},
		{imageproxy.ErrTooLarge, http.StatusBadGateway},
		{fmt.Errorf("wait: %w", context.Canceled), 0},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := imageErrorStatus(tt.err); got != tt.want {
			t.Errorf("imageErrorStatus(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}
