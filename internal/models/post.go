// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the read-only content types served by the remote
// content API. The frontend never mutates these; they are decoded from JSON,
// normalised, and handed to the presentation layer.
package models

import "time"

// Post is a published blog post as returned by the content API.
// Image fields are empty strings when absent.
type Post struct {
	ID             int64      `json:"id"`
	Slug           string     `json:"slug"`
	Title          string     `json:"title"`
	Excerpt        string     `json:"excerpt"`
	Content        string     `json:"content,omitempty"`
	FeaturedImage  string     `json:"featured_image"`
	BlurDataURL    string     `json:"blur_data_url,omitempty"`
	SideImage1     string     `json:"side_image_1,omitempty"`
	SideImage1Blur string     `json:"side_image_1_blur,omitempty"`
	SideImage2     string     `json:"side_image_2,omitempty"`
	SideImage2Blur string     `json:"side_image_2_blur,omitempty"`
	PublishedAt    time.Time  `json:"published_at"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	ReadingTime    int        `json:"reading_time"`
	Categories     []Category `json:"categories"`
	Tags           []string   `json:"tags"`
	IsFeatured     bool       `json:"is_featured"`
}

// Summary returns the excerpt, or the title when the excerpt is empty.
func (p *Post) Summary() string {
	if p.Excerpt != "" {
		return p.Excerpt
	}
	return p.Title
}

// SideImages returns the non-empty side images in display order.
func (p *Post) SideImages() []Image {
	var imgs []Image
	if p.SideImage1 != "" {
		imgs = append(imgs, Image{URL: p.SideImage1, Blur: p.SideImage1Blur})
	}
	if p.SideImage2 != "" {
		imgs = append(imgs, Image{URL: p.SideImage2, Blur: p.SideImage2Blur})
	}
	return imgs
}

// Image pairs an image URL with its optional blur placeholder.
type Image struct {
	URL  string
	Blur string
}

// PostPage is one page of a post listing, normalised from either the
// {results, next, count} envelope or a bare JSON array.
type PostPage struct {
	Items   []Post
	HasMore bool
	Total   int
}
