package keybackend

import "errors"

// ErrEmptyToken is returned when neither the inline token nor the token file
// yields a non-empty secret.
var ErrEmptyToken = errors.New("access token is empty")
