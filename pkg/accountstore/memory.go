package accountstore

import (
	"context"
	"sync"

	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

// MemoryStore is an in-process account store.
type MemoryStore struct {
	mu            sync.RWMutex
	available     bool
	accessGranted bool
	accounts      []twitter.Account
}

var _ twitter.AccountStore = (*MemoryStore)(nil)

// NewMemoryStore returns an available store with access granted.
func NewMemoryStore(accounts ...twitter.Account) *MemoryStore {
	return &MemoryStore{
		available:     true,
		accessGranted: true,
		accounts:      append([]twitter.Account(nil), accounts...),
	}
}

func (s *MemoryStore) SetAvailable(available bool) {
	s.mu.Lock()
	s.available = available
	s.mu.Unlock()
}

func (s *MemoryStore) SetAccessGranted(granted bool) {
	s.mu.Lock()
	s.accessGranted = granted
	s.mu.Unlock()
}

// Add registers account, replacing any account with the same identifier.
func (s *MemoryStore) Add(account twitter.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.accounts {
		if s.accounts[i].Identifier == account.Identifier {
			s.accounts[i] = account
			return
		}
	}
	s.accounts = append(s.accounts, account)
}

func (s *MemoryStore) Remove(identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.accounts[:0]
	for _, account := range s.accounts {
		if account.Identifier != identifier {
			kept = append(kept, account)
		}
	}
	s.accounts = kept
}

// Available reports whether the store is enabled and holds at least one valid account.
func (s *MemoryStore) Available(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available && hasValidAccount(s.accounts)
}

func (s *MemoryStore) RequestAccess(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.accessGranted {
		return ErrAccessNotGranted
	}
	return nil
}

func (s *MemoryStore) Accounts(ctx context.Context) ([]twitter.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]twitter.Account(nil), s.accounts...), nil
}
