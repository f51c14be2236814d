package api

import (
	"errors"
	"fmt"
)

// ErrTransport is the generic failure every remote call collapses to:
// timeouts, refused connections, non-2xx responses and undecodable bodies.
var ErrTransport = errors.New("api: transport failure")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrTransport }
