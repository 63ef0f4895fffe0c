// Package shortener allocates short identifiers for original URLs and resolves them back.
package shortener

import (
	"errors"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when no link owns the requested identifier.
	ErrNotFound = errors.New("link not found")
	// ErrInvalidURL is returned when the input is not an absolute http or https URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrLabelTaken is returned when a custom label is already used as an identifier.
	ErrLabelTaken = errors.New("custom label already taken")
	// ErrLabelForbidden is returned when a custom label is in the word filter.
	ErrLabelForbidden = errors.New("custom label not allowed")
	// ErrAttemptsExhausted is returned when no usable identifier was derived within the attempt budget.
	ErrAttemptsExhausted = errors.New("identifier allocation attempts exhausted")
)

// OriginalURL is a persisted target URL. Its ID comes from a monotonically increasing sequence.
type OriginalURL struct {
	ID       int64
	Original string
}

// Link maps an identifier to an OriginalURL.
type Link struct {
	Identifier string
	CreatedAt  time.Time
	URL        OriginalURL
}

// EncodeID renders a sequence id as a lowercase base-36 identifier.
func EncodeID(id int64) string {
	return strconv.FormatInt(id, 36)
}
