package api

import (
	"errors"
	"fmt"
)

// ErrBookNotFound indicates the server does not know the requested book.
var ErrBookNotFound = errors.New("book not found on server")

// StatusError represents an unexpected HTTP status from the library server.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("library server returned HTTP %d for %s", e.StatusCode, e.Endpoint)
}
