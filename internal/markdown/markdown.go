// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown turns post bodies into safe HTML. Bodies may be Markdown,
// raw HTML written before the Markdown editor existed, or a mix of both.
// The pipeline is: goldmark (raw HTML passed through), bluemonday UGC
// sanitisation, then a goquery pass that rewrites inline image sources.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // tables, strikethrough, autolinks, task lists
		extension.Typographer, // smart quotes and dashes
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // raw HTML is sanitised afterwards
	),
)

// classNames matches chroma's generated class lists.
var classNames = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// ToHTML converts Markdown source into unsanitised HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ImageRewriter maps an inline image source to the URL the browser should
// load. Returning "" drops the image.
type ImageRewriter func(src string) string

// Renderer converts post bodies to sanitised HTML.
type Renderer struct {
	policy  *bluemonday.Policy
	rewrite ImageRewriter
}

// New creates a Renderer. rewrite may be nil to keep image sources as-is.
func New(rewrite ImageRewriter) *Renderer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(classNames).OnElements("pre", "code", "span", "div")
	p.AllowDataURIImages()

	return &Renderer{policy: p, rewrite: rewrite}
}

// Render converts a post body to HTML that is safe to embed in a page.
func (r *Renderer) Render(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	raw, err := ToHTML(source)
	if err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	clean := r.policy.Sanitize(raw)

	out, err := r.rewriteImages(clean)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}

// rewriteImages passes every <img src> through the rewriter and marks
// images for lazy loading.
func (r *Renderer) rewriteImages(fragment string) (string, error) {
	if !strings.Contains(fragment, "<img") {
		return fragment, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("markdown: parse html: %w", err)
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if r.rewrite != nil {
			src = r.rewrite(src)
		}
		if src == "" {
			s.Remove()
			return
		}
		s.SetAttr("src", src)
		s.SetAttr("loading", "lazy")
		s.SetAttr("decoding", "async")
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("markdown: serialise html: %w", err)
	}
	return body, nil
}
