// Package setup loads the authenticator configuration from the environment and builds
// its collaborators.
package setup

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NethermindEth/locktwitter/pkg/accountstore"
	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

// DefaultConnectionName is the identity platform connection used when none is configured.
const DefaultConnectionName = "twitter"

type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Connection     string

	TwitterAPIURL    string
	AccountsFile     string
	AccountBridgeURL string

	IdentityDomain   string
	IdentityClientID string

	LogLevel string
	LogJSON  bool
}

func LoadConfigFromEnv() *Config {
	return &Config{
		ConsumerKey:      envGetTwitterConsumerKey(),
		ConsumerSecret:   envGetTwitterConsumerSecret(),
		Connection:       envGetTwitterConnection(),
		TwitterAPIURL:    envGetTwitterAPIURL(),
		AccountsFile:     envGetAccountsFile(),
		AccountBridgeURL: envGetAccountBridgeURL(),
		IdentityDomain:   envGetIdentityDomain(),
		IdentityClientID: envGetIdentityClientID(),
		LogLevel:         envGetLogLevel(),
		LogJSON:          envGetLogJSON(),
	}
}

// LogSettingsFromEnv returns LOG_LEVEL and LOG_JSON so the logger can be configured before
// the rest of the environment is read.
func LogSettingsFromEnv() (level string, json bool) {
	return envGetLogLevel(), envGetLogJSON()
}

// DefaultAccountsFile is accounts.yaml under the user config directory.
func DefaultAccountsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "locktwitter", "accounts.yaml")
}

// AccountStore returns the device bridge when one is configured and the account file
// otherwise.
func (c *Config) AccountStore() twitter.AccountStore {
	if c.AccountBridgeURL != "" {
		return twitter.NewProxyAccountStore(c.AccountBridgeURL, nil)
	}
	return accountstore.NewFileStore(c.AccountsFile)
}

func (c *Config) ReverseAuthClient(logger *slog.Logger) (*twitter.ReverseAuthClient, error) {
	return twitter.NewReverseAuthClient(&twitter.ReverseAuthClientConfig{
		BaseURL: c.TwitterAPIURL,
		Logger:  logger,
	})
}

func (c *Config) IdentityClient(logger *slog.Logger) (*identity.Client, error) {
	return identity.NewClient(&identity.Config{
		Domain:   c.IdentityDomain,
		ClientID: c.IdentityClientID,
		Logger:   logger,
	})
}

// DefaultAccountStore builds the account store from the environment alone.
func DefaultAccountStore() twitter.AccountStore {
	cfg := &Config{
		AccountsFile:     envGetAccountsFile(),
		AccountBridgeURL: envGetAccountBridgeURL(),
	}
	return cfg.AccountStore()
}

// DefaultReverseAuthClient builds a Twitter client for the API URL in the environment.
func DefaultReverseAuthClient(logger *slog.Logger) (*twitter.ReverseAuthClient, error) {
	cfg := &Config{TwitterAPIURL: envGetTwitterAPIURL()}
	return cfg.ReverseAuthClient(logger)
}

// DefaultIdentityClient builds an identity client for the tenant in the environment.
func DefaultIdentityClient(logger *slog.Logger) (*identity.Client, error) {
	cfg := &Config{
		IdentityDomain:   envGetIdentityDomain(),
		IdentityClientID: envGetIdentityClientID(),
	}
	return cfg.IdentityClient(logger)
}
