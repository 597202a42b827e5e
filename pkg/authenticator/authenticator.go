// Package authenticator logs users in to the identity platform with the Twitter account
// registered on the device, using Twitter reverse authentication.
package authenticator

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
	"github.com/NethermindEth/locktwitter/pkg/utils/metrics"
)

var (
	ErrMissingConsumerKey = errors.New("missing twitter consumer key")
	ErrUserCancelled      = errors.New("user cancelled the login")
	ErrTransactionStarted = errors.New("transaction already started")
)

// Authenticator is a native login flow bound to one identity platform connection.
type Authenticator interface {
	Connection() string
	// Login creates a transaction that obtains the native provider credentials.
	Login(opts LoginOptions) NativeTransaction
	// Authenticate runs a native transaction and exchanges its result for credentials.
	Authenticate(ctx context.Context, opts LoginOptions) (*identity.Credentials, error)
}

// NativeTransaction obtains provider credentials without a browser redirect.
type NativeTransaction interface {
	Auth(ctx context.Context) (*NativeAuthCredentials, error)
	Cancel()
	Resume(u *url.URL) bool
}

type LoginOptions struct {
	// Scope requested from the identity platform, identity.DefaultScope when empty.
	Scope string
	// Parameters are sent along with the token exchange.
	Parameters map[string]any
}

func (o LoginOptions) scope() string {
	if o.Scope == "" {
		return identity.DefaultScope
	}
	return o.Scope
}

// Extra keys set on NativeAuthCredentials by the Twitter transaction.
const (
	ExtraAccessTokenSecret = "access_token_secret"
	ExtraUserID            = "user_id"
)

// NativeAuthCredentials are the provider credentials handed to the identity platform.
type NativeAuthCredentials struct {
	Token  string
	Extras map[string]any

	// Account is the device account the credentials were obtained with.
	Account *twitter.Account
	// ScreenName is filled when Twitter returns it or when the token was verified.
	ScreenName string
}

type Option func(*TwitterAuthenticator)

func WithAccountStore(store twitter.AccountStore) Option {
	return func(a *TwitterAuthenticator) {
		a.store = store
	}
}

func WithAccountChooser(chooser twitter.AccountChooser) Option {
	return func(a *TwitterAuthenticator) {
		a.chooser = chooser
	}
}

func WithReverseAuthClient(client *twitter.ReverseAuthClient) Option {
	return func(a *TwitterAuthenticator) {
		a.twitterClient = client
	}
}

func WithIdentityClient(client *identity.Client) Option {
	return func(a *TwitterAuthenticator) {
		a.identityClient = client
	}
}

// WithCredentialsCache reuses credentials for the same account, connection and scope
// until they expire.
func WithCredentialsCache(cache *identity.CredentialsCache) Option {
	return func(a *TwitterAuthenticator) {
		a.cache = cache
	}
}

// WithConsumerSecret enables verification of the token issued by reverse auth.
func WithConsumerSecret(secret string) Option {
	return func(a *TwitterAuthenticator) {
		a.consumerSecret = secret
	}
}

func WithMetrics(collector *metrics.MetricsCollector) Option {
	return func(a *TwitterAuthenticator) {
		a.metrics = collector
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *TwitterAuthenticator) {
		a.logger = logger
	}
}
