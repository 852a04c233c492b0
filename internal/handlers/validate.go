package handlers

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"inkwell/internal/slug"
)

// maxSearchLen caps the search term in runes.
const maxSearchLen = 200

var validate = validator.New(validator.WithRequiredStructEnabled())

// subscribeForm is the newsletter form body.
type subscribeForm struct {
	Email string `validate:"required,max=254,email"`
}

// validateSubscribe checks the newsletter form and returns the first error
// message found, or "" when the form is valid.
func validateSubscribe(form subscribeForm) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please enter a valid email address."
	}
	switch verrs[0].Tag() {
	case "required":
		return "Email is required."
	case "max":
		return "Email is too long (max 254 characters)."
	default:
		return "Please enter a valid email address."
	}
}

// cleanSearch trims a search term and caps its length in runes.
func cleanSearch(q string) string {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) > maxSearchLen {
		q = string([]rune(q)[:maxSearchLen])
	}
	return q
}

// cleanCategory returns the category slug, or "" when it is not a valid slug.
func cleanCategory(s string) string {
	s = strings.TrimSpace(s)
	if !slug.Valid(s) {
		return ""
	}
	return s
}
