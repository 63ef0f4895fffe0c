// Package store provides the persistence backends for links and visits.
package store

import "errors"

// ErrVisitNotFound is returned when updating a visit that does not exist.
var ErrVisitNotFound = errors.New("visit not found")
