package cloudpad

import "errors"

var (
	// ErrNotFound is returned when a key does not exist in the bucket
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTooLarge is returned when a request body exceeds the upload limit
	ErrTooLarge = errors.New("payload too large")
)
