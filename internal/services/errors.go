package services

import "errors"

// Failure classifications. Every error returned by the services matches one of
// these with errors.Is, and usually wraps the underlying cause as well.
var (
	ErrValidation       = errors.New("invalid upload")
	ErrStorage          = errors.New("storage error")
	ErrPersistence      = errors.New("persistence error")
	ErrNotFound         = errors.New("video not found")
	ErrExpired          = errors.New("video has expired")
	ErrPasswordRequired = errors.New("password required")
)
