// Package roomcode generates and validates the short codes that identify
// meeting rooms. The same rules back the join form and the JSON API.
package roomcode

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jxskiss/base62"
)

// Length is the number of characters in a room code.
const Length = 10

// Tag is the validator tag checking a room code field.
const Tag = "roomcode"

var ErrInvalid = errors.New("invalid room code")

var pattern = regexp.MustCompile(`^[0-9A-Za-z]{10}$`)

// New returns a fresh code. Uniqueness is left to the store.
func New() string {
	id := uuid.New()
	return base62.EncodeToString(id[:])[:Length]
}

// Normalize strips whitespace and reduces a pasted meeting link to its code.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "/meet/"); i >= 0 {
		s = s[i+len("/meet/"):]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}

// Validate reports whether code is a well-formed room code.
func Validate(code string) error {
	if !pattern.MatchString(code) {
		return ErrInvalid
	}
	return nil
}

// RegisterValidation installs the roomcode tag on v.
func RegisterValidation(v *validator.Validate) error {
	return v.RegisterValidation(Tag, func(fl validator.FieldLevel) bool {
		return Validate(Normalize(fl.Field().String())) == nil
	})
}
