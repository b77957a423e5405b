package api

import (
	"errors"
	"fmt"
)

// ErrEmptySymbol is returned by mutating calls before any network dispatch
// when the symbol is empty after normalization.
var ErrEmptySymbol = errors.New("symbol must not be empty")

// Error is a normalized backend failure. Non-2xx responses carry the
// backend's {detail} message; Status is the HTTP status code.
type Error struct {
	Status    int
	Detail    string
	RequestID string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// IsTransient reports whether the failure is worth surfacing as a temporary
// network problem: transport-level errors and server-side (5xx) statuses.
// Client-side (4xx) statuses indicate a request that will not succeed on
// retry. Transient failures are never retried in place; recovery is the next
// scheduled tick or the next user action.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	// Anything that never produced a status line is a transport failure.
	return !errors.Is(err, ErrEmptySymbol)
}
