// Package errs contains sentinel and typed errors shared by the form workflow layers.
package errs

import "errors"

// Common sentinels across client/screen layers.
var (
	// ErrValidation indicates a required form field is empty or invalid.
	ErrValidation = errors.New("validation failed")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrHTTP indicates the server answered with a non-2xx status.
	ErrHTTP = errors.New("http error")

	// ErrNotFound indicates the requested plant does not exist on the server.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing, expired or rejected bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoToken indicates the local store holds no session token.
	ErrNoToken = errors.New("no session token")

	// ErrSubmitInProgress indicates a submission is already in flight for the screen.
	ErrSubmitInProgress = errors.New("submission in progress")

	// ErrScreenClosed indicates the screen already finished (navigated away or closed).
	ErrScreenClosed = errors.New("screen closed")
)
