package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrTokenRequired  = errors.New("token is required")
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoKeys     = errors.New("no keys provided")
	ErrEmptyKey   = errors.New("key is required")
	ErrEmptyPath  = errors.New("path is required")
	ErrSameRename = errors.New("old and new key are the same")
)
