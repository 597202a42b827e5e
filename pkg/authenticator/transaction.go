package authenticator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/NethermindEth/locktwitter/pkg/debug"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

type transactionState int

const (
	stateIdle transactionState = iota
	stateRunning
	stateDone
)

// Transaction is the Twitter native transaction: account selection, reverse auth signature
// and reverse auth token. It runs at most once.
type Transaction struct {
	connection  string
	scope       string
	parameters  map[string]any
	consumerKey string

	consumerSecret string
	store          twitter.AccountStore
	chooser        twitter.AccountChooser
	client         *twitter.ReverseAuthClient
	logger         *slog.Logger

	// account skips account retrieval when set.
	account *twitter.Account

	mu        sync.Mutex
	state     transactionState
	cancelled bool
	cancel    context.CancelFunc
}

var _ NativeTransaction = (*Transaction)(nil)

func (t *Transaction) Connection() string {
	return t.connection
}

func (t *Transaction) Scope() string {
	return t.scope
}

func (t *Transaction) Parameters() map[string]any {
	return t.parameters
}

// Auth obtains the Twitter credentials. It fails with ErrUserCancelled once Cancel has been
// called, even if the handshake itself completed.
func (t *Transaction) Auth(ctx context.Context) (*NativeAuthCredentials, error) {
	t.mu.Lock()
	if t.state != stateIdle {
		t.mu.Unlock()
		return nil, ErrTransactionStarted
	}
	t.state = stateRunning
	if t.cancelled {
		t.state = stateDone
		t.mu.Unlock()
		return nil, ErrUserCancelled
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	defer cancel()

	credentials, err := t.run(ctx)

	t.mu.Lock()
	t.state = stateDone
	cancelled := t.cancelled
	t.mu.Unlock()

	if cancelled {
		return nil, ErrUserCancelled
	}
	if err != nil {
		return nil, err
	}
	return credentials, nil
}

// Cancel aborts the transaction. It is safe to call at any time and more than once.
func (t *Transaction) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateDone {
		return
	}
	t.cancelled = true
	if t.cancel != nil {
		t.cancel()
	}
}

// Resume always accepts: the native flow has no redirect leg.
func (t *Transaction) Resume(u *url.URL) bool {
	return true
}

func (t *Transaction) run(ctx context.Context) (*NativeAuthCredentials, error) {
	if t.consumerKey == "" {
		return nil, ErrMissingConsumerKey
	}
	if t.client == nil {
		return nil, fmt.Errorf("%w: no reverse auth client", twitter.ErrInvalidConfig)
	}

	account := t.account
	if account == nil {
		var err error
		account, err = twitter.RetrieveAccount(ctx, t.store, t.chooser)
		if err != nil {
			return nil, err
		}
	}

	t.logger.Info("starting twitter reverse auth", "connection", t.connection, "account", account.Username)

	signature, err := t.client.RetrieveSignature(ctx, account)
	if err != nil {
		return nil, err
	}

	token, err := t.client.RetrieveToken(ctx, signature, account, t.consumerKey)
	if err != nil {
		return nil, err
	}
	if !token.Complete() {
		return nil, twitter.ErrMissingToken
	}

	screenName := token.ScreenName()
	if t.consumerSecret != "" {
		user, err := t.client.VerifyCredentials(ctx, t.consumerKey, t.consumerSecret, token)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: verify credentials: %v", twitter.ErrReverseAuthRequest, err)
		}
		screenName = user.ScreenName
	}

	t.logger.Info("twitter reverse auth finished",
		"connection", t.connection,
		"user_id", token.UserID(),
		"token", debug.Redact(token.OAuthToken()),
	)

	return &NativeAuthCredentials{
		Token: token.OAuthToken(),
		Extras: map[string]any{
			ExtraAccessTokenSecret: token.OAuthTokenSecret(),
			ExtraUserID:            token.UserID(),
		},
		Account:    account,
		ScreenName: screenName,
	}, nil
}
