package domain

import "errors"

// Back-office error kinds. Stores and services wrap them with %w; the HTTP layer
// maps them to 404, 409, 401, 403 and 400 in that order.
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrUnauthorized = errors.New("not signed in")
	ErrForbidden    = errors.New("access denied")
	ErrBadRequest   = errors.New("invalid input")
)
