package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing start time, duration outside the tier table).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when the request is well-formed but the current
// state of the resource forbids it: deleting a slot that is no longer open,
// claiming a slot someone else already holds, overlapping slots.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the acting user may not touch the resource,
// e.g. a guide editing another guide's calendar.
// Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")
