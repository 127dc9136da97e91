package service

import "errors"

// Failure kinds the transport layer maps to HTTP statuses.
var (
	ErrValidation   = errors.New("validation")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal")
)
