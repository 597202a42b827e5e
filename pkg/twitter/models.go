package twitter

import (
	"errors"
	"fmt"

	"github.com/dghubble/oauth1"
)

// Error definitions
var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrAccountAccessDenied = errors.New("access to twitter accounts denied")
	ErrNoValidAccounts     = errors.New("no valid twitter accounts")
	ErrCancelled           = errors.New("account selection cancelled")
	ErrSignatureRequest    = errors.New("reverse auth signature request failed")
	ErrReverseAuthRequest  = errors.New("reverse auth token request failed")
	ErrMissingToken        = errors.New("reverse auth response is missing token fields")
	ErrInvalidAccount      = errors.New("invalid twitter account")
)

// Account is a Twitter account credential held by a device-level account integration.
// ConsumerKey and ConsumerSecret belong to the integration that owns the account, not to
// the application asking for reverse auth.
type Account struct {
	Identifier     string `json:"identifier" yaml:"identifier"`
	Username       string `json:"username" yaml:"username"`
	ConsumerKey    string `json:"consumer_key" yaml:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret" yaml:"consumer_secret"`
	Token          string `json:"token" yaml:"token"`
	TokenSecret    string `json:"token_secret" yaml:"token_secret"`
}

func (a *Account) Validate() error {
	switch {
	case a.Identifier == "":
		return fmt.Errorf("%w: missing identifier", ErrInvalidAccount)
	case a.ConsumerKey == "" || a.ConsumerSecret == "":
		return fmt.Errorf("%w: missing consumer key or secret for %s", ErrInvalidAccount, a.Identifier)
	case a.Token == "" || a.TokenSecret == "":
		return fmt.Errorf("%w: missing token or secret for %s", ErrInvalidAccount, a.Identifier)
	}
	return nil
}

func (a *Account) oauthConfig() *oauth1.Config {
	return oauth1.NewConfig(a.ConsumerKey, a.ConsumerSecret)
}

func (a *Account) oauthToken() *oauth1.Token {
	return oauth1.NewToken(a.Token, a.TokenSecret)
}

// Keys of the form-encoded reverse auth token response.
const (
	TokenKeyOAuthToken       = "oauth_token"
	TokenKeyOAuthTokenSecret = "oauth_token_secret"
	TokenKeyUserID           = "user_id"
	TokenKeyScreenName       = "screen_name"
)

// ReverseAuthToken holds the fields returned by the reverse auth access_token call.
type ReverseAuthToken map[string]string

func (t ReverseAuthToken) OAuthToken() string {
	return t[TokenKeyOAuthToken]
}

func (t ReverseAuthToken) OAuthTokenSecret() string {
	return t[TokenKeyOAuthTokenSecret]
}

func (t ReverseAuthToken) UserID() string {
	return t[TokenKeyUserID]
}

func (t ReverseAuthToken) ScreenName() string {
	return t[TokenKeyScreenName]
}

// Complete reports whether the token carries every field needed for the identity exchange.
func (t ReverseAuthToken) Complete() bool {
	return t.OAuthToken() != "" && t.OAuthTokenSecret() != "" && t.UserID() != ""
}

type User struct {
	ID         string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

type ErrorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}
