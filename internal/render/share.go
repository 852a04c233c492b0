// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"net/url"

	"inkwell/internal/models"
)

// ShareLink is one social sharing target.
type ShareLink struct {
	Name string
	URL  string
}

// ShareLinks builds the sharing targets for a post. Pinterest needs an
// image, so it is only included when image is non-empty.
func ShareLinks(siteURL string, p *models.Post, image string) []ShareLink {
	if p == nil {
		return nil
	}
	postURL := siteURL + "/posts/" + url.PathEscape(p.Slug)

	links := []ShareLink{
		{Name: "Twitter", URL: "https://twitter.com/intent/tweet?" + url.Values{
			"url":  {postURL},
			"text": {p.Title},
		}.Encode()},
		{Name: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?" + url.Values{
			"u": {postURL},
		}.Encode()},
		{Name: "LinkedIn", URL: "https://www.linkedin.com/sharing/share-offsite/?" + url.Values{
			"url": {postURL},
		}.Encode()},
	}
	if image != "" {
		links = append(links, ShareLink{Name: "Pinterest", URL: "https://pinterest.com/pin/create/button/?" + url.Values{
			"url":         {postURL},
			"media":       {image},
			"description": {p.Title},
		}.Encode()})
	}
	return links
}
