package authenticator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/NethermindEth/locktwitter/pkg/debug"
	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/setup"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
	"github.com/NethermindEth/locktwitter/pkg/utils/errors"
	"github.com/NethermindEth/locktwitter/pkg/utils/metrics"
)

// DefaultConnectionName is the connection used by NewAuthenticatorWithConsumerKey.
const DefaultConnectionName = setup.DefaultConnectionName

// TwitterAuthenticator logs in with the Twitter account held by the device account store.
// Collaborators not supplied as options are built from the environment on first use.
// It is safe for concurrent use.
type TwitterAuthenticator struct {
	consumerKey    string
	consumerSecret string
	connection     string

	store          twitter.AccountStore
	chooser        twitter.AccountChooser
	twitterClient  *twitter.ReverseAuthClient
	identityClient *identity.Client
	cache          *identity.CredentialsCache
	metrics        *metrics.MetricsCollector
	logger         *slog.Logger

	storeOnce    sync.Once
	nativeOnce   sync.Once
	nativeErr    error
	identityOnce sync.Once
	identityErr  error
}

var _ Authenticator = (*TwitterAuthenticator)(nil)

// NewAuthenticatorWithConsumerKey returns an authenticator for the "twitter" connection.
func NewAuthenticatorWithConsumerKey(consumerKey string, opts ...Option) *TwitterAuthenticator {
	return NewAuthenticatorWithConnectionName(DefaultConnectionName, consumerKey, opts...)
}

// NewAuthenticatorWithConnectionName returns an authenticator for connectionName.
// consumerKey identifies the Twitter application the reverse auth token is issued to; it is
// checked when a login starts, not here.
func NewAuthenticatorWithConnectionName(connectionName, consumerKey string, opts ...Option) *TwitterAuthenticator {
	a := &TwitterAuthenticator{
		consumerKey: consumerKey,
		connection:  connectionName,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// CanUseNativeTwitterAuthentication reports whether the device account integration configured
// in the environment is present and usable. It queries the store on every call.
func CanUseNativeTwitterAuthentication() bool {
	return CanAuthenticateWith(context.Background(), setup.DefaultAccountStore())
}

// CanAuthenticateWith reports whether store is present and configured.
// It does not request access, so it never prompts.
func CanAuthenticateWith(ctx context.Context, store twitter.AccountStore) bool {
	if store == nil {
		return false
	}
	return store.Available(ctx)
}

func (a *TwitterAuthenticator) Connection() string {
	return a.connection
}

func (a *TwitterAuthenticator) ConsumerKey() string {
	return a.consumerKey
}

// CanUseNativeAuthentication is CanAuthenticateWith for this authenticator's store.
// Client configuration errors do not affect it; they surface when a login runs.
func (a *TwitterAuthenticator) CanUseNativeAuthentication(ctx context.Context) bool {
	return CanAuthenticateWith(ctx, a.resolveStore())
}

func (a *TwitterAuthenticator) Login(opts LoginOptions) NativeTransaction {
	return a.newTransaction(opts)
}

func (a *TwitterAuthenticator) newTransaction(opts LoginOptions) *Transaction {
	// A configuration error leaves client nil; the transaction reports it when run.
	_ = a.resolveNative()

	return &Transaction{
		connection:     a.connection,
		scope:          opts.scope(),
		parameters:     opts.Parameters,
		consumerKey:    a.consumerKey,
		consumerSecret: a.consumerSecret,
		store:          a.store,
		chooser:        a.chooser,
		client:         a.twitterClient,
		logger:         a.logger,
	}
}

// Authenticate selects a device account, runs reverse auth for it and exchanges the
// resulting token at the identity platform. Errors are *errors.Error values typed by stage.
func (a *TwitterAuthenticator) Authenticate(ctx context.Context, opts LoginOptions) (*identity.Credentials, error) {
	credentials, err := a.authenticate(ctx, opts)
	if err != nil {
		a.incrementCounter(metrics.MetricLoginFailure)
		a.logger.Warn("twitter login failed", "connection", a.connection, "error", err, "type", errors.TypeOf(err))
		return nil, err
	}
	a.incrementCounter(metrics.MetricLoginSuccess)
	return credentials, nil
}

func (a *TwitterAuthenticator) authenticate(ctx context.Context, opts LoginOptions) (*identity.Credentials, error) {
	if a.consumerKey == "" {
		return nil, errors.New(errors.TypeValidation, "cannot start twitter login", ErrMissingConsumerKey)
	}
	if err := a.resolveNative(); err != nil {
		return nil, errors.Wrap(err, errors.TypeSetup, "failed to configure twitter client")
	}
	if err := a.resolveIdentity(); err != nil {
		return nil, errors.Wrap(err, errors.TypeSetup, "failed to configure identity client")
	}

	account, err := twitter.RetrieveAccount(ctx, a.store, a.chooser)
	if err != nil {
		return nil, errors.New(classify(err), "failed to retrieve twitter account", err)
	}

	scope := opts.scope()
	var cacheKey string
	if a.cache != nil {
		cacheKey, err = identity.CacheKey(a.connection, account.Identifier, scope, opts.Parameters)
		if err != nil {
			return nil, errors.New(errors.TypeValidation, "invalid login parameters", err)
		}
		if credentials, ok := a.cache.Get(cacheKey); ok {
			a.incrementCounter(metrics.MetricCacheHit)
			a.logger.Debug("using cached credentials", "connection", a.connection, "account", account.Username)
			return credentials, nil
		}
	}

	tx := a.newTransaction(opts)
	tx.account = account

	var native *NativeAuthCredentials
	err = a.track(metrics.MetricReverseAuth, func() error {
		var err error
		native, err = tx.Auth(ctx)
		return err
	})
	if err != nil {
		return nil, errors.New(classify(err), "twitter reverse auth failed", err)
	}

	parameters := make(map[string]any, len(opts.Parameters)+len(native.Extras))
	for k, v := range opts.Parameters {
		parameters[k] = v
	}
	for k, v := range native.Extras {
		parameters[k] = v
	}

	var credentials *identity.Credentials
	err = a.track(metrics.MetricTokenExchange, func() error {
		var err error
		credentials, err = a.identityClient.LoginSocial(ctx, identity.SocialLoginRequest{
			AccessToken: native.Token,
			Connection:  a.connection,
			Scope:       scope,
			Parameters:  parameters,
		})
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.TypeAccount, "login cancelled", ctx.Err())
		}
		return nil, errors.New(errors.TypeIdentity, "identity token exchange failed", err)
	}

	if a.cache != nil {
		a.cache.Add(cacheKey, credentials)
	}

	a.logger.Info("twitter login succeeded",
		"connection", a.connection,
		"account", account.Username,
		"access_token", debug.Redact(credentials.AccessToken),
	)
	return credentials, nil
}

func (a *TwitterAuthenticator) resolveStore() twitter.AccountStore {
	a.storeOnce.Do(func() {
		if a.store == nil {
			a.store = setup.DefaultAccountStore()
		}
	})
	return a.store
}

func (a *TwitterAuthenticator) resolveNative() error {
	a.resolveStore()
	a.nativeOnce.Do(func() {
		if a.twitterClient != nil {
			return
		}
		client, err := setup.DefaultReverseAuthClient(a.logger)
		if err != nil {
			a.nativeErr = err
			return
		}
		a.twitterClient = client
	})
	return a.nativeErr
}

func (a *TwitterAuthenticator) resolveIdentity() error {
	a.identityOnce.Do(func() {
		if a.identityClient != nil {
			return
		}
		client, err := setup.DefaultIdentityClient(a.logger)
		if err != nil {
			a.identityErr = err
			return
		}
		a.identityClient = client
	})
	return a.identityErr
}

func (a *TwitterAuthenticator) track(operation string, fn func() error) error {
	if a.metrics == nil {
		return fn()
	}
	return a.metrics.WithLatencyTracking(operation, fn)
}

func (a *TwitterAuthenticator) incrementCounter(name string) {
	if a.metrics != nil {
		a.metrics.IncrementCounter(name)
	}
}

func classify(err error) errors.ErrorType {
	switch {
	case stderrors.Is(err, ErrMissingConsumerKey):
		return errors.TypeValidation
	case stderrors.Is(err, ErrUserCancelled),
		stderrors.Is(err, context.Canceled),
		stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, twitter.ErrAccountAccessDenied),
		stderrors.Is(err, twitter.ErrNoValidAccounts),
		stderrors.Is(err, twitter.ErrCancelled):
		return errors.TypeAccount
	default:
		return errors.TypeTwitter
	}
}
