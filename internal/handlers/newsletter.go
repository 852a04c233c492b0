// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"inkwell/internal/content"
	"inkwell/internal/render"
)

// maxFormBytes bounds the newsletter form body.
const maxFormBytes = 4 << 10

// Newsletter handles the subscribe form.
type Newsletter struct {
	renderer *render.Renderer
	content  *content.Client
}

// NewNewsletter creates a new Newsletter handler.
func NewNewsletter(renderer *render.Renderer, client *content.Client) *Newsletter {
	return &Newsletter{renderer: renderer, content: client}
}

// Subscribe validates the submitted email and forwards it to the content
// API. The result is an inline message swapped in below the form. Errors
// are answered with 200 as well, since HTMX does not swap error responses.
func (n *Newsletter) Subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		n.result(w, false, "Invalid form submission.")
		return
	}

	form := subscribeForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if msg := validateSubscribe(form); msg != "" {
		n.result(w, false, msg)
		return
	}

	sub, err := n.content.Subscribe(r.Context(), form.Email)
	if err != nil {
		n.result(w, false, content.UserMessage(err))
		return
	}

	slog.Info("newsletter subscription", "subscriber_id", sub.ID)
	n.result(w, true, "Thanks for subscribing! New posts will reach "+form.Email+".")
}

func (n *Newsletter) result(w http.ResponseWriter, ok bool, msg string) {
	n.renderer.Partial(w, http.StatusOK, "newsletter_result", render.NewsletterResult{OK: ok, Message: msg})
}
