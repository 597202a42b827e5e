package accountstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

func account(id, username string) twitter.Account {
	return twitter.Account{
		Identifier:     id,
		Username:       username,
		ConsumerKey:    "device-key",
		ConsumerSecret: "device-secret",
		Token:          username + "-token",
		TokenSecret:    username + "-secret",
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(account("1", "alice"))

	assert.True(t, store.Available(ctx))
	require.NoError(t, store.RequestAccess(ctx))

	store.Add(account("2", "bob"))
	updated := account("1", "alice")
	updated.Token = "rotated"
	store.Add(updated)

	accounts, err := store.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "rotated", accounts[0].Token)

	store.Remove("1")
	accounts, err = store.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "bob", accounts[0].Username)

	store.SetAccessGranted(false)
	assert.ErrorIs(t, store.RequestAccess(ctx), ErrAccessNotGranted)

	store.SetAvailable(false)
	assert.False(t, store.Available(ctx))
}

func TestMemoryStore_AvailableNeedsValidAccount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	assert.False(t, store.Available(ctx))

	store.Add(twitter.Account{Identifier: "broken", Username: "broken"})
	assert.False(t, store.Available(ctx))

	store.Add(account("1", "alice"))
	assert.True(t, store.Available(ctx))

	store.Remove("1")
	assert.False(t, store.Available(ctx))
}

func TestMemoryStore_AccountsIsACopy(t *testing.T) {
	store := NewMemoryStore(account("1", "alice"))

	accounts, err := store.Accounts(context.Background())
	require.NoError(t, err)
	accounts[0].Username = "mallory"

	accounts, err = store.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", accounts[0].Username)
}
