package services

import "errors"

// Error taxonomy surfaced by the services. Handlers map these to HTTP
// statuses; anything wrapping another error is a storage failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidTag   = errors.New("invalid tag")
	ErrEmptyComment = errors.New("empty comment")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)
