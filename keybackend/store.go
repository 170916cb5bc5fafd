// Package keybackend loads the shared access token and verifies candidate
// tokens against it.
package keybackend

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// TokenConfig holds configuration for loading the access token.
type TokenConfig struct {
	Token     string `mapstructure:"token"`      // Inline token from config
	TokenFile string `mapstructure:"token_file"` // Path to a file holding the token
}

// TokenStore holds the single shared secret for the process lifetime.
type TokenStore struct {
	sum [sha256.Size]byte
}

// NewTokenStore creates a TokenStore from the given configuration. The token
// file takes precedence over the inline token when both are set.
func NewTokenStore(cfg TokenConfig) (*TokenStore, error) {
	token := strings.TrimSpace(cfg.Token)

	if cfg.TokenFile != "" {
		fileToken, err := LoadTokenFromFile(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		token = fileToken
	}

	if token == "" {
		return nil, ErrEmptyToken
	}

	return &TokenStore{sum: sha256.Sum256([]byte(token))}, nil
}

// Verify reports whether candidate equals the stored token. Both sides are
// hashed first so the comparison time does not depend on either length.
func (s *TokenStore) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	sum := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(s.sum[:], sum[:]) == 1
}
