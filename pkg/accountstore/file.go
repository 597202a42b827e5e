// Package accountstore provides twitter.AccountStore implementations and account choosers
// for hosts without a platform account integration.
package accountstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

var ErrAccessNotGranted = errors.New("access not granted")

type fileContents struct {
	AccessGranted *bool             `yaml:"access_granted"`
	Accounts      []twitter.Account `yaml:"accounts"`
}

// FileStore reads accounts from a YAML file:
//
//	access_granted: true
//	accounts:
//	  - identifier: 1a2b
//	    username: alice
//	    consumer_key: ...
//	    consumer_secret: ...
//	    token: ...
//	    token_secret: ...
//
// The file is read on every call so edits are picked up immediately.
// access_granted defaults to true when omitted.
type FileStore struct {
	path string
}

var _ twitter.AccountStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (*fileContents, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read account file: %w", err)
	}

	var contents fileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse account file %s: %w", s.path, err)
	}
	return &contents, nil
}

// Available reports whether the file exists, parses and lists at least one valid account.
// access_granted is left to RequestAccess.
func (s *FileStore) Available(ctx context.Context) bool {
	if s.path == "" {
		return false
	}
	contents, err := s.load()
	if err != nil {
		return false
	}
	return hasValidAccount(contents.Accounts)
}

func (s *FileStore) RequestAccess(ctx context.Context) error {
	contents, err := s.load()
	if err != nil {
		return err
	}
	if contents.AccessGranted != nil && !*contents.AccessGranted {
		return fmt.Errorf("%w in %s", ErrAccessNotGranted, s.path)
	}
	return nil
}

// Accounts returns the valid accounts in the file. Invalid entries are skipped.
func (s *FileStore) Accounts(ctx context.Context) ([]twitter.Account, error) {
	contents, err := s.load()
	if err != nil {
		return nil, err
	}

	accounts := make([]twitter.Account, 0, len(contents.Accounts))
	for _, account := range contents.Accounts {
		if err := account.Validate(); err != nil {
			slog.Warn("skipping invalid account", "path", s.path, "error", err)
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func hasValidAccount(accounts []twitter.Account) bool {
	for i := range accounts {
		if accounts[i].Validate() == nil {
			return true
		}
	}
	return false
}
