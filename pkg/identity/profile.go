package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Profile struct {
	Subject   string
	Issuer    string
	Name      string
	Nickname  string
	Picture   string
	ExpiresAt time.Time
	Claims    jwt.MapClaims
}

// Profile decodes the id token claims. The signature is not checked: the token comes
// straight from the token endpoint over TLS and is only used for display.
func (c *Credentials) Profile() (*Profile, error) {
	if c.IDToken == "" {
		return nil, ErrNoIDToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.IDToken, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	profile := &Profile{Claims: claims}
	if profile.Subject, _ = claims.GetSubject(); profile.Subject == "" {
		return nil, fmt.Errorf("parse id token: missing sub claim")
	}
	profile.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		profile.ExpiresAt = exp.Time
	}
	profile.Name, _ = claims["name"].(string)
	profile.Nickname, _ = claims["nickname"].(string)
	profile.Picture, _ = claims["picture"].(string)

	return profile, nil
}
