// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrNotFound is returned by single-resource lookups when the API answers 404.
var ErrNotFound = errors.New("content: not found")

// ErrEmptyPage labels a listing page with zero results. It is a termination
// signal for pagination, not a failure, and is never returned by the client.
var ErrEmptyPage = errors.New("content: empty page")

// NetworkError wraps a transport-level failure (DNS, connection refused,
// timeout, context cancellation, unreadable body).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("content: %s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is returned when the API responds with a non-2xx status.
// Detail holds the first human-readable message found in the error body.
type HTTPError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("content: %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("content: %s: status %d", e.Op, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// UserMessage turns an error from Subscribe into text suitable for showing
// next to the form.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Detail != "" {
			return httpErr.Detail
		}
		return fmt.Sprintf("Subscription failed (status %d).", httpErr.StatusCode)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Could not reach the server. Please try again later."
	}
	return err.Error()
}

// errorDetail extracts a message from a DRF-style error body:
// {"detail": "..."} or {"field": ["message", ...]}.
func errorDetail(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	if raw, ok := obj["detail"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var msgs []string
		if json.Unmarshal(obj[k], &msgs) == nil && len(msgs) > 0 {
			return msgs[0]
		}
		var s string
		if json.Unmarshal(obj[k], &s) == nil && s != "" {
			return s
		}
	}
	return ""
}
