package schema

import "errors"

var (
	ErrUnknownAgent          = errors.New("unknown agent")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrInvalidToken          = errors.New("invalid token")
	ErrMalformedOutput       = errors.New("malformed model output")
)
