// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imageurl rewrites image URLs coming from the content API into
// fetchable, environment-aware URLs. The API returns a mix of relative media
// paths, absolute URLs on either the internal or the public host, and
// external URLs that were mistakenly stored under the media prefix (with the
// scheme separator percent-encoded or collapsed to a single slash).
//
// Server-side code resolves media against the internal base so that fetches
// stay inside the private network; browser-facing code resolves against the
// public base. Both directions are idempotent for a fixed side.
package imageurl

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"inkwell/internal/models"
)

// Side selects which base URL relative media paths resolve against.
type Side int

const (
	// Client resolves against the public base (browser-reachable).
	Client Side = iota
	// Server resolves against the internal base (private network).
	Server
)

func (s Side) String() string {
	if s == Server {
		return "server"
	}
	return "client"
}

// maxUnwrap bounds how many nested media wrappers are peeled off one URL.
const maxUnwrap = 4

var (
	// schemeRe matches an http(s) scheme followed by any number of slashes,
	// so "https:/host" and "https:host" can be repaired to "https://host".
	schemeRe = regexp.MustCompile(`(?i)^(https?):/*`)

	// nestedRe matches an external URL stored under the media prefix, with or
	// without the content host in front:
	//   http://django:8000/media/https%3A/picsum.photos/x.jpg
	//   /media/https:/picsum.photos/x.jpg
	nestedRe = regexp.MustCompile(`(?i)^(?:https?:/*[^/]+)?/?media/(https?(?:%3A|:).+)$`)

	encodedColonRe = regexp.MustCompile(`(?i)%3A`)
)

// Normalizer rewrites raw image URLs using an explicit pair of base URLs.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	internalBase string // e.g. "http://django:8000"
	publicBase   string // e.g. "http://localhost:8000"
	internal     *url.URL
	public       *url.URL
}

// New creates a Normalizer. Both bases must be absolute http(s) URLs;
// trailing slashes are trimmed.
func New(internalBase, publicBase string) (*Normalizer, error) {
	in, err := parseBase(internalBase)
	if err != nil {
		return nil, fmt.Errorf("imageurl: internal base: %w", err)
	}
	pub, err := parseBase(publicBase)
	if err != nil {
		return nil, fmt.Errorf("imageurl: public base: %w", err)
	}
	return &Normalizer{
		internalBase: strings.TrimRight(internalBase, "/"),
		publicBase:   strings.TrimRight(publicBase, "/"),
		internal:     in,
		public:       pub,
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return u, nil
}

// InternalBase returns the configured internal base URL.
func (n *Normalizer) InternalBase() string { return n.internalBase }

// PublicBase returns the configured public base URL.
func (n *Normalizer) PublicBase() string { return n.publicBase }

// Normalize maps a raw image URL to a canonical URL for the given side.
//   - "" stays "".
//   - data: URIs (blur placeholders) are returned unchanged.
//   - External URLs nested under /media/ are decoded and returned directly.
//   - Absolute URLs get their scheme separator repaired; on the server side a
//     URL on the public host is moved to the internal host.
//   - Relative paths are prefixed with the internal (server) or public
//     (client) base.
func (n *Normalizer) Normalize(raw string, side Side) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if isDataURI(raw) {
		return raw
	}

	if inner, ok := unwrap(raw); ok {
		if side == Server {
			return n.rehost(inner, n.isPublicHost, n.internalBase)
		}
		return inner
	}

	if hasScheme(raw) {
		repaired := RepairScheme(raw)
		if side == Server {
			return n.rehost(repaired, n.isPublicHost, n.internalBase)
		}
		return repaired
	}

	if strings.HasPrefix(raw, "//") {
		return n.public.Scheme + ":" + raw
	}

	base := n.publicBase
	if side == Server {
		base = n.internalBase
	}
	return joinBase(base, raw)
}

// ToPublic resolves a raw image URL to the externally reachable host. It is
// meant for metadata (OpenGraph, share links), never for server-side fetches.
func (n *Normalizer) ToPublic(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if isDataURI(raw) {
		return raw
	}
	if inner, ok := unwrap(raw); ok {
		return n.rehost(inner, n.isInternalHost, n.publicBase)
	}
	if hasScheme(raw) {
		return n.rehost(RepairScheme(raw), n.isInternalHost, n.publicBase)
	}
	if strings.HasPrefix(raw, "//") {
		return n.public.Scheme + ":" + raw
	}
	return joinBase(n.publicBase, raw)
}

// Post normalises the image fields of p in place for the given side.
func (n *Normalizer) Post(p *models.Post, side Side) {
	p.FeaturedImage = n.Normalize(p.FeaturedImage, side)
	p.SideImage1 = n.Normalize(p.SideImage1, side)
	p.SideImage2 = n.Normalize(p.SideImage2, side)
}

// Posts normalises every post in the slice in place.
func (n *Normalizer) Posts(posts []models.Post, side Side) {
	for i := range posts {
		n.Post(&posts[i], side)
	}
}

// Theme normalises the hero image of t in place.
func (n *Normalizer) Theme(t *models.Theme, side Side) {
	if t == nil {
		return
	}
	t.HeroImage = n.Normalize(t.HeroImage, side)
}

// IsKnownHost reports whether u points at the internal or the public host.
func (n *Normalizer) IsKnownHost(u *url.URL) bool {
	return n.isInternalHost(u) || n.isPublicHost(u)
}

// RepairScheme fixes a malformed scheme separator ("https:/host",
// "HTTPS:host") and lowercases the scheme. Strings without an http(s)
// scheme are returned unchanged.
func RepairScheme(s string) string {
	m := schemeRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return strings.ToLower(m[1]) + "://" + s[len(m[0]):]
}

// unwrap peels nested media wrappers off raw and returns the innermost
// external URL with a repaired scheme.
func unwrap(raw string) (string, bool) {
	found := false
	cur := raw
	for i := 0; i < maxUnwrap; i++ {
		m := nestedRe.FindStringSubmatch(cur)
		if m == nil {
			break
		}
		decoded, err := url.PathUnescape(m[1])
		if err != nil {
			decoded = encodedColonRe.ReplaceAllString(m[1], ":")
		}
		if !hasScheme(decoded) {
			break
		}
		cur = RepairScheme(decoded)
		found = true
	}
	return cur, found
}

// rehost replaces the scheme and host of an absolute URL with base when
// match reports the URL's host as eligible.
func (n *Normalizer) rehost(abs string, match func(*url.URL) bool, base string) string {
	u, err := url.Parse(abs)
	if err != nil || u.Host == "" || u.User != nil || !match(u) {
		return abs
	}
	prefix := u.Scheme + "://" + u.Host
	if !strings.HasPrefix(strings.ToLower(abs), strings.ToLower(prefix)) {
		return abs
	}
	return base + abs[len(prefix):]
}

func (n *Normalizer) isPublicHost(u *url.URL) bool {
	return sameHost(u, n.public)
}

func (n *Normalizer) isInternalHost(u *url.URL) bool {
	return sameHost(u, n.internal)
}

// sameHost compares host and port. A loopback base also matches the other
// loopback spellings (localhost, 127.0.0.1, [::1]) on the same port.
func sameHost(u, base *url.URL) bool {
	if strings.EqualFold(u.Host, base.Host) {
		return true
	}
	if effectivePort(u) != effectivePort(base) {
		return false
	}
	return isLoopback(base.Hostname()) && isLoopback(u.Hostname())
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if strings.EqualFold(u.Scheme, "https") {
		return "443"
	}
	return "80"
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func hasScheme(s string) bool {
	return schemeRe.MatchString(s)
}

func isDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

func joinBase(base, path string) string {
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}
