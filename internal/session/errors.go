package session

import "errors"

// Sentinel errors checked with errors.Is().
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("invalid turn role")
	ErrEmptyContent    = errors.New("turn content is empty")
)
