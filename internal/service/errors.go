package service

import "errors"

// Failures surfaced to callers. Each is wrapped with a description, so match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("concurrent update")
)
