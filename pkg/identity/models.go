package identity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig  = errors.New("invalid identity configuration")
	ErrInvalidRequest = errors.New("invalid social login request")
	ErrNoIDToken      = errors.New("credentials carry no id token")
)

// Credentials are the tokens issued by the identity platform.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// ExpiresAt is computed from ExpiresIn when the credentials are received. It is nil
	// when the platform sent no expiry.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the credentials are past their expiry at now.
// Credentials without an expiry never expire.
func (c *Credentials) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// AuthenticationError is returned when the identity platform rejects a request.
type AuthenticationError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *AuthenticationError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("identity platform error (status %d): %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("identity platform error (status %d): %s: %s", e.StatusCode, e.Code, e.Description)
}

// errorResponse covers both the OAuth style and the legacy error bodies.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             string `json:"code"`
	Description      string `json:"description"`
}
