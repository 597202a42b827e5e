package twitter

import (
	"context"
	"errors"
	"fmt"
)

// AccountStore is the device-level Twitter account integration.
type AccountStore interface {
	// Available reports whether the integration is present and configured.
	Available(ctx context.Context) bool
	// RequestAccess asks the integration for permission to use its accounts.
	RequestAccess(ctx context.Context) error
	// Accounts lists the registered accounts. Only valid after RequestAccess.
	Accounts(ctx context.Context) ([]Account, error)
}

// AccountChooser picks one account when the store holds several.
// Returning ErrCancelled aborts the login.
type AccountChooser interface {
	ChooseAccount(ctx context.Context, accounts []Account) (*Account, error)
}

// AccountChooserFunc adapts a function to AccountChooser.
type AccountChooserFunc func(ctx context.Context, accounts []Account) (*Account, error)

func (f AccountChooserFunc) ChooseAccount(ctx context.Context, accounts []Account) (*Account, error) {
	return f(ctx, accounts)
}

// RetrieveAccount requests access to store and returns the account to authenticate with.
// A single registered account is used without consulting chooser.
func RetrieveAccount(ctx context.Context, store AccountStore, chooser AccountChooser) (*Account, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no account store", ErrNoValidAccounts)
	}

	if err := store.RequestAccess(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountAccessDenied, err)
	}

	accounts, err := store.Accounts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNoValidAccounts, err)
	}

	switch len(accounts) {
	case 0:
		return nil, ErrNoValidAccounts
	case 1:
		account := accounts[0]
		return &account, nil
	}

	if chooser == nil {
		return nil, fmt.Errorf("%w: %d accounts registered and no chooser configured", ErrCancelled, len(accounts))
	}

	account, err := chooser.ChooseAccount(ctx, accounts)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	if account == nil {
		return nil, ErrCancelled
	}

	return account, nil
}
