// Package apperr defines sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrStreamInterrupted = errors.New("stream ended before completion")
	ErrMalformedSources  = errors.New("malformed sources response")
	ErrSuperseded        = errors.New("superseded by a newer submission")
	ErrHandlerClosed     = errors.New("handler closed")
)
