// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidNote      = errors.New("invalid note")
	ErrStoreUnavailable = errors.New("store unavailable")
)
