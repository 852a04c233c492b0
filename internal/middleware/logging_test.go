package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// captureLogs redirects the default slog logger into a buffer for the
// duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogger(t *testing.T) {
	t.Run("records status, size and route", func(t *testing.T) {
		logs := captureLogs(t)

		r := chi.NewRouter()
		r.Use(Logger)
		r.Get("/posts/{slug}", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		})

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/posts/first", nil))

		if rr.Code != http.StatusOK || rr.Body.String() != "hello" {
			t.Errorf("response = %d %q", rr.Code, rr.Body.String())
		}
		out := logs.String()
		for _, want := range []string{"level=INFO", "status=200", "bytes=5", "path=/posts/first", "route=/posts/{slug}"} {
			if !strings.Contains(out, want) {
				t.Errorf("log %q missing %q", out, want)
			}
		}
	})

	t.Run("server errors log at warn", func(t *testing.T) {
		logs := captureLogs(t)
		h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if rr.Code != http.StatusBadGateway {
			t.Errorf("status = %d", rr.Code)
		}
		if !strings.Contains(logs.String(), "level=WARN") {
			t.Errorf("log = %q", logs.String())
		}
	})

	t.Run("health checks log at debug", func(t *testing.T) {
		logs := captureLogs(t)
		h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		if !strings.Contains(logs.String(), "level=DEBUG") {
			t.Errorf("log = %q", logs.String())
		}
	})

	t.Run("marks htmx requests", func(t *testing.T) {
		logs := captureLogs(t)
		h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/feed/x/more", nil)
		req.Header.Set("HX-Request", "true")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if !strings.Contains(logs.String(), "htmx=true") {
			t.Errorf("log = %q", logs.String())
		}
	})
}

// TestResponseWriter tests the responseWriter wrapper used by the Logger
// middleware to verify it correctly captures status codes.
func TestResponseWriter(t *testing.T) {
	t.Run("WriteHeader only captures first call", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusNotFound)
		rw.WriteHeader(http.StatusInternalServerError)

		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode: got %d, want 404 (first call)", rw.statusCode)
		}
	})

	t.Run("Write sets default 200 status and counts bytes", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}

		rw.Write([]byte("abc"))
		rw.Write([]byte("de"))

		if rw.statusCode != http.StatusOK || !rw.written {
			t.Errorf("status = %d written = %v", rw.statusCode, rw.written)
		}
		if rw.bytes != 5 {
			t.Errorf("bytes = %d, want 5", rw.bytes)
		}
	})

	t.Run("Unwrap returns the inner writer", func(t *testing.T) {
		inner := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: inner}
		if rw.Unwrap() != inner {
			t.Error("Unwrap mismatch")
		}
	})
}
