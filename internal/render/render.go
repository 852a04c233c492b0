// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public site.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header, and renders the feed
// fragments returned by the infinite-scroll endpoints.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
)

//go:embed templates/public/*.html
var publicFS embed.FS

const (
	templateDir  = "templates/public"
	baseFile     = "base.html"
	partialsFile = "partials.html"
)

// fallbackBlur is shown while an image without its own placeholder loads.
const fallbackBlur = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHZpZXdCb3g9IjAgMCA4IDUiPjxyZWN0IHdpZHRoPSI4IiBoZWlnaHQ9IjUiIGZpbGw9IiNlNWU3ZWIiLz48L3N2Zz4="

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Site is the identity shared by every page.
type Site struct {
	Title    string
	Subtitle string
	URL      string // public origin, no trailing slash
}

// Meta holds OpenGraph and description tags.
type Meta struct {
	Description string
	Image       string // absolute public URL
	URL         string
	Type        string // "website" or "article"
}

// PageData holds all data passed to public templates.
type PageData struct {
	Site           Site
	Title          string // page title for <title>; the site title is appended
	Meta           Meta
	CSRFToken      string
	Theme          *models.Theme
	Categories     []models.Category
	ActiveCategory string
	Query          string
	Featured       []models.Post
	Feed           *FeedView
	Post           *models.Post
	Body           template.HTML // rendered post content
	Status         int           // HTTP status, default 200
	Message        string        // error page text
}

// ShowNavbar reports whether the category navigation is drawn. Without a
// theme the navbar is shown.
func (d *PageData) ShowNavbar() bool {
	return d.Theme == nil || d.Theme.ShowNavbar
}

// FeedView is one render of a feed: the cards to draw plus what follows them.
type FeedView struct {
	ID    string
	Items []models.Post
	Tail  Tail
}

// Tail is the element after the last card: a sentinel, an error box with a
// retry button, or the end-of-list message.
type Tail struct {
	State      string // "idle", "loading", "error", "end"
	Target     string // DOM id of the sentinel
	MoreURL    string
	RetryURL   string
	Threshold  float64
	RootMargin string
	Error      string
	Empty      bool // the feed has no posts at all
}

// FilterView is the response to a category change on a live feed: the
// rebuilt feed plus the featured posts for the new category, swapped
// out of band.
type FilterView struct {
	Feed     *FeedView
	Featured []models.Post
}

// NewsletterResult is the inline message shown after a subscribe attempt.
type NewsletterResult struct {
	OK      bool
	Message string
}

// Options configures a Renderer.
type Options struct {
	DevMode bool
	Site    Site
	// ImageURL maps a stored image URL to what the browser should load.
	ImageURL func(string) string
	// PublicURL maps a stored image URL to its public absolute form.
	PublicURL func(string) string
}

// Renderer handles template parsing and execution for public pages.
type Renderer struct {
	templates map[string]*template.Template
	partials  *template.Template
	funcMap   template.FuncMap
	site      Site
}

// New creates a Renderer by parsing all public templates from the embedded
// filesystem. Each page template is paired with the base layout and the
// shared partials. When DevMode is true, templates use CDN-hosted assets;
// when false, they reference compiled local static files.
func New(opts Options) (*Renderer, error) {
	if opts.ImageURL == nil {
		opts.ImageURL = func(s string) string { return s }
	}
	if opts.PublicURL == nil {
		opts.PublicURL = func(s string) string { return s }
	}
	opts.Site.URL = strings.TrimRight(opts.Site.URL, "/")

	r := &Renderer{
		templates: make(map[string]*template.Template),
		site:      opts.Site,
	}
	r.funcMap = template.FuncMap{
		"isDev": func() bool { return opts.DevMode },
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("January 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			return t.Format(time.RFC3339)
		},
		"imgsrc": func(raw string) template.URL {
			return safeImageURL(opts.ImageURL(raw))
		},
		"blur": func(p models.Post) template.URL {
			if strings.HasPrefix(p.BlurDataURL, "data:image/") {
				return template.URL(p.BlurDataURL)
			}
			return template.URL(fallbackBlur)
		},
		"blurOr": func(b string) template.URL {
			if strings.HasPrefix(b, "data:image/") {
				return template.URL(b)
			}
			return template.URL(fallbackBlur)
		},
		"boxColor": func(t *models.Theme) template.CSS {
			c := t.BoxColor()
			if !hexColor.MatchString(c) {
				c = "#FFFFFF"
			}
			return template.CSS(c)
		},
		"postURL": func(slug string) string {
			return "/posts/" + url.PathEscape(slug)
		},
		"categoryURL": func(slug string) string {
			if slug == "" {
				return "/"
			}
			return "/category/" + url.PathEscape(slug)
		},
		"filterURL": func(feedID, slug string) string {
			return "/feed/" + url.PathEscape(feedID) + "/filter?" + url.Values{"category": {slug}}.Encode()
		},
		"shareLinks": func(p *models.Post) []ShareLink {
			return ShareLinks(opts.Site.URL, p, opts.PublicURL(p.FeaturedImage))
		},
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
	}

	entries, err := publicFS.ReadDir(templateDir)
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	r.partials, err = template.New(partialsFile).Funcs(r.funcMap).ParseFS(publicFS, path.Join(templateDir, partialsFile))
	if err != nil {
		return nil, fmt.Errorf("parse partials: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == baseFile || name == partialsFile {
			continue
		}
		tmpl, err := template.New(baseFile).Funcs(r.funcMap).ParseFS(publicFS,
			path.Join(templateDir, baseFile),
			path.Join(templateDir, partialsFile),
			path.Join(templateDir, name),
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}

	return r, nil
}

// Site returns the configured site identity.
func (rn *Renderer) Site() Site {
	return rn.site
}

// Page renders a full public page or an HTMX partial, depending on the
// request headers. For HTMX requests, only the "content" block is sent.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.prepare(r, data)

	if _, ok := rn.templates[name]; !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	execName := baseFile
	if isHTMX(r) {
		execName = "content"
	}
	if err := rn.execute(&buf, name, execName, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusOf(data))
	buf.WriteTo(w)
}

// RenderPage renders a full page to bytes, for the page cache. The CSRF
// token is deliberately left out since cached bytes are shared.
func (rn *Renderer) RenderPage(name string, data *PageData) ([]byte, error) {
	data.Site = rn.site
	data.CSRFToken = ""
	var buf bytes.Buffer
	if err := rn.execute(&buf, name, baseFile, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Partial renders one shared partial (a feed fragment, the newsletter
// result) with the given status.
func (rn *Renderer) Partial(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := rn.partials.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("partial render failed", "partial", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (rn *Renderer) prepare(r *http.Request, data *PageData) {
	data.Site = rn.site
	if data.CSRFToken == "" {
		data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	}
}

func (rn *Renderer) execute(w io.Writer, name, execName string, data *PageData) error {
	tmpl, ok := rn.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, execName, data)
}

func statusOf(data *PageData) int {
	if data.Status == 0 {
		return http.StatusOK
	}
	return data.Status
}

// safeImageURL accepts site-relative paths, http(s) URLs and data:image
// URIs. Anything else renders as an empty src.
func safeImageURL(s string) template.URL {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//"),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "data:image/"):
		return template.URL(s)
	default:
		return ""
	}
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
