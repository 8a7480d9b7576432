// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors: ErrForbidden means the caller does
// not own the resource it is trying to mutate, ErrConflict means a
// uniqueness constraint (email, slug) was violated, and ErrNotFound means
// the requested row does not exist.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id matches no row. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else. Handlers translate this into an HTTP
// 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint such as a duplicate category slug. Handlers translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is the email-specific uniqueness violation raised by the
// user repository so registration can report a stable message.
var ErrEmailExists = errors.New("email already exists")
