// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests: a
// fake content API served by httptest, and the full handler stack wired
// against it.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"inkwell/internal/cache"
	"inkwell/internal/content"
	"inkwell/internal/feed"
	"inkwell/internal/imageproxy"
	"inkwell/internal/imageurl"
	"inkwell/internal/markdown"
	"inkwell/internal/models"
	"inkwell/internal/render"
	"inkwell/internal/sentinel"
)

const (
	testPageSize   = 5
	testPublicBase = "https://media.example.com"
)

// fakeAPI imitates the content API and the media host behind it.
type fakeAPI struct {
	mu              sync.Mutex
	posts           []models.Post
	failPages       map[string]bool
	failPost        bool
	subscribeStatus int
	subscribeBody   string
	hits            map[string]int

	// When gate is set, listing requests for gatePage signal started and
	// block until gate is closed or the client goes away.
	gatePage string
	gate     chan struct{}
	started  chan struct{}
}

func newFakeAPI(n int) *fakeAPI {
	return &fakeAPI{
		posts:           samplePosts(n),
		failPages:       map[string]bool{},
		subscribeStatus: http.StatusCreated,
		hits:            map[string]int{},
	}
}

func samplePosts(n int) []models.Post {
	published := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	posts := make([]models.Post, 0, n)
	for i := 1; i <= n; i++ {
		cat := models.Category{ID: 1, Name: "Go", Slug: "go"}
		if i%2 == 0 {
			cat = models.Category{ID: 2, Name: "Web Dev", Slug: "web-dev"}
		}
		posts = append(posts, models.Post{
			ID:            int64(i),
			Slug:          fmt.Sprintf("post-%d", i),
			Title:         fmt.Sprintf("Post %d", i),
			Excerpt:       fmt.Sprintf("Excerpt %d", i),
			Content:       fmt.Sprintf("# Post %d\n\nSome **bold** text.\n\n![inline](/media/inline.jpg)\n", i),
			FeaturedImage: fmt.Sprintf("/media/post-%d.jpg", i),
			PublishedAt:   published.AddDate(0, 0, -i),
			ReadingTime:   3,
			Categories:    []models.Category{cat},
			Tags:          []string{"tag"},
			IsFeatured:    i <= 2,
		})
	}
	return posts
}

func (f *fakeAPI) setFailPage(page string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPages[page] = fail
}

// holdPage makes listing requests for page block until the returned
// release func is called.
func (f *fakeAPI) holdPage(page string) (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gatePage = page
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 1)
	gate := f.gate
	var once sync.Once
	return f.started, func() { once.Do(func() { close(gate) }) }
}

func (f *fakeAPI) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, "/media/") {
		f.serveMedia(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	switch {
	case path == "/posts/":
		f.listPosts(w, r)
	case strings.HasPrefix(path, "/posts/"):
		f.getPost(w, strings.Trim(strings.TrimPrefix(path, "/posts/"), "/"))
	case path == "/featured-posts/":
		f.featured(w, r)
	case path == "/theme/":
		io.WriteString(w, `{"id":1,"theme_name":"Default","hero_image":"/media/hero.jpg","hero_image_alt":"Hero","hero_box_color":"#abcdef"}`)
	case path == "/categories/":
		io.WriteString(w, `{"results":[{"id":1,"name":"Go","slug":"go","description":"All things Go"},{"id":2,"name":"Web Dev","slug":""}]}`)
	case path == "/subscribe/":
		f.mu.Lock()
		status, body := f.subscribeStatus, f.subscribeBody
		f.mu.Unlock()
		var req struct{ Email string }
		json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(status)
		if body == "" {
			body = fmt.Sprintf(`{"id":7,"email":%q}`, req.Email)
		}
		io.WriteString(w, body)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	fail := f.failPages[q.Get("page")]
	posts := f.posts
	gate, started := f.gate, f.started
	gated := gate != nil && q.Get("page") == f.gatePage
	f.mu.Unlock()
	if gated {
		started <- struct{}{}
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"boom"}`)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	category, search := q.Get("category"), strings.ToLower(q.Get("search"))

	var matched []models.Post
	for _, p := range posts {
		if category != "" && p.Categories[0].Slug != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		matched = append(matched, p)
	}

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	resp := map[string]any{"results": matched[start:end], "count": len(matched), "next": nil}
	if end < len(matched) {
		resp["next"] = fmt.Sprintf("http://api/posts/?page=%d", page+1)
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) getPost(w http.ResponseWriter, slug string) {
	f.mu.Lock()
	fail := f.failPost
	f.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	for _, p := range f.posts {
		if p.Slug == slug {
			json.NewEncoder(w).Encode(p)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, `{"detail":"Not found."}`)
}

func (f *fakeAPI) featured(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	out := []models.Post{}
	for _, p := range f.posts {
		if p.IsFeatured && (category == "" || p.Categories[0].Slug == category) {
			out = append(out, p)
		}
	}
	json.NewEncoder(w).Encode(out)
}

func (f *fakeAPI) serveMedia(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/missing.jpg"):
		http.NotFound(w, r)
	case strings.HasSuffix(r.URL.Path, ".txt"):
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "not an image")
	default:
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("\xff\xd8\xff\xe0fake-jpeg"))
	}
}

// testEnv is the handler stack wired against a fakeAPI.
type testEnv struct {
	api       *fakeAPI
	srv       *httptest.Server
	feeds     *feed.Registry
	pageCache *cache.PageCache
	router    chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := newFakeAPI(12)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	normalizer, err := imageurl.New(srv.URL, testPublicBase)
	if err != nil {
		t.Fatalf("imageurl.New: %v", err)
	}
	client, err := content.New(content.Config{
		BaseURL:    srv.URL + "/api/v1",
		Normalizer: normalizer,
		Side:       imageurl.Server,
	})
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}

	proxy := imageproxy.New(imageproxy.Config{Normalizer: normalizer})
	renderer, err := render.New(render.Options{
		DevMode:   true,
		Site:      render.Site{Title: "Inkwell", URL: "https://blog.example.com"},
		ImageURL:  proxy.URL,
		PublicURL: normalizer.ToPublic,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	pageCache := cache.NewPageCache(rdb, time.Minute)

	feeds := feed.NewRegistry(client, feed.RegistryOptions{
		PageSize: testPageSize,
		Sentinel: sentinel.Options{Threshold: 0.2},
	})

	public := NewPublic(renderer, client, feeds, markdown.New(proxy.URL), normalizer, pageCache)
	feedH := NewFeed(renderer, client, feeds)
	newsletter := NewNewsletter(renderer, client)
	images := NewImages(proxy)

	r := chi.NewRouter()
	r.Get("/", public.Home)
	r.Get("/category/{slug}", public.Category)
	r.Get("/search", public.Search)
	r.Get("/posts/{slug}", public.Post)
	r.Get("/feed/{id}/more", feedH.More)
	r.Get("/feed/{id}/filter", feedH.Filter)
	r.Post("/subscribe", newsletter.Subscribe)
	r.Get(imageproxy.Path, images.Serve)
	r.NotFound(public.NotFound)

	return &testEnv{api: api, srv: srv, feeds: feeds, pageCache: pageCache, router: r}
}

// get performs a GET against the router.
func (e *testEnv) get(t *testing.T, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// postForm performs a form POST against the router.
func (e *testEnv) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func parseHTML(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// postSlugs lists the post links of the cards under sel, in order.
func postSlugs(sel *goquery.Selection) []string {
	var slugs []string
	sel.Find("article.card h3 a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		slugs = append(slugs, strings.TrimPrefix(href, "/posts/"))
	})
	return slugs
}

// sentinelURL returns the visibility report URL of the sentinel in doc,
// with the given intersection appended the way the browser script does.
func sentinelURL(t *testing.T, doc *goquery.Document, visible bool, ratio float64) string {
	t.Helper()
	u, ok := doc.Find("[data-sentinel]").Attr("data-url")
	if !ok {
		t.Fatal("no sentinel in document")
	}
	v := "0"
	if visible {
		v = "1"
	}
	return u + "&visible=" + v + "&ratio=" + strconv.FormatFloat(ratio, 'f', -1, 64)
}

func feedID(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	id, ok := doc.Find("section.feed").Attr("id")
	if !ok {
		t.Fatal("no feed in document")
	}
	return strings.TrimPrefix(id, "feed-")
}

func equalSlugs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
