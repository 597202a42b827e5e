package setup

import (
	"log/slog"
	"os"
	"strconv"
)

const (
	TwitterConsumerKeyKey    = "X_CONSUMER_KEY"
	TwitterConsumerSecretKey = "X_CONSUMER_SECRET"
	TwitterConnectionKey     = "X_CONNECTION"
	TwitterAPIURLKey         = "X_API_URL"
	AccountsFileKey          = "X_ACCOUNTS_FILE"
	AccountBridgeURLKey      = "X_ACCOUNT_BRIDGE_URL"
	IdentityDomainKey        = "AUTH0_DOMAIN"
	IdentityClientIDKey      = "AUTH0_CLIENT_ID"
	LogLevelKey              = "LOG_LEVEL"
	LogJSONKey               = "LOG_JSON"
)

func envGetTwitterConsumerKey() string {
	key, ok := os.LookupEnv(TwitterConsumerKeyKey)
	if !ok {
		slog.Warn(TwitterConsumerKeyKey + " environment variable not set")
	}
	return key
}

func envGetTwitterConsumerSecret() string {
	secret, _ := os.LookupEnv(TwitterConsumerSecretKey)
	return secret
}

func envGetTwitterConnection() string {
	connection, ok := os.LookupEnv(TwitterConnectionKey)
	if !ok || connection == "" {
		return DefaultConnectionName
	}
	return connection
}

func envGetTwitterAPIURL() string {
	url, _ := os.LookupEnv(TwitterAPIURLKey)
	return url
}

func envGetAccountsFile() string {
	path, ok := os.LookupEnv(AccountsFileKey)
	if !ok || path == "" {
		return DefaultAccountsFile()
	}
	return path
}

func envGetAccountBridgeURL() string {
	url, _ := os.LookupEnv(AccountBridgeURLKey)
	return url
}

func envGetIdentityDomain() string {
	domain, ok := os.LookupEnv(IdentityDomainKey)
	if !ok {
		slog.Warn(IdentityDomainKey + " environment variable not set")
	}
	return domain
}

func envGetIdentityClientID() string {
	clientID, ok := os.LookupEnv(IdentityClientIDKey)
	if !ok {
		slog.Warn(IdentityClientIDKey + " environment variable not set")
	}
	return clientID
}

func envGetLogLevel() string {
	level, _ := os.LookupEnv(LogLevelKey)
	return level
}

func envGetLogJSON() bool {
	value, ok := os.LookupEnv(LogJSONKey)
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn(LogJSONKey + " environment variable is not a valid bool")
	}
	return enabled
}
