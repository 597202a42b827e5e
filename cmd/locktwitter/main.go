package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/NethermindEth/locktwitter/pkg/setup"
	"github.com/NethermindEth/locktwitter/pkg/utils/logger"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	fail    = color.New(color.FgRed).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

type rootFlags struct {
	consumerKey      string
	consumerSecret   string
	connection       string
	apiURL           string
	accountsFile     string
	accountBridgeURL string
	identityDomain   string
	identityClientID string
	logLevel         string
	logJSON          bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		flags rootFlags
		cfg   = &setup.Config{}
	)

	rootCmd := &cobra.Command{
		Use:           "locktwitter",
		Short:         "Log in to the identity platform with the Twitter account registered on this device",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configure(cmd, &flags, cfg, os.Stderr)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.consumerKey, "consumer-key", "", "Twitter consumer key the token is issued to (overrides "+setup.TwitterConsumerKeyKey+")")
	pf.StringVar(&flags.consumerSecret, "consumer-secret", "", "Twitter consumer secret, enables token verification (overrides "+setup.TwitterConsumerSecretKey+")")
	pf.StringVar(&flags.connection, "connection", "", "Identity platform connection name (overrides "+setup.TwitterConnectionKey+")")
	pf.StringVar(&flags.apiURL, "api-url", "", "Twitter API base URL (overrides "+setup.TwitterAPIURLKey+")")
	pf.StringVar(&flags.accountsFile, "accounts-file", "", "Device accounts file (overrides "+setup.AccountsFileKey+")")
	pf.StringVar(&flags.accountBridgeURL, "bridge-url", "", "Device account bridge URL (overrides "+setup.AccountBridgeURLKey+")")
	pf.StringVar(&flags.identityDomain, "domain", "", "Identity platform domain (overrides "+setup.IdentityDomainKey+")")
	pf.StringVar(&flags.identityClientID, "client-id", "", "Identity platform client id (overrides "+setup.IdentityClientIDKey+")")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides "+setup.LogLevelKey+")")
	pf.BoolVar(&flags.logJSON, "log-json", false, "Log in JSON format (overrides "+setup.LogJSONKey+")")

	rootCmd.AddCommand(
		newCheckCommand(cfg),
		newLoginCommand(cfg),
		newServeCommand(cfg),
	)

	return rootCmd
}

// configure installs the logger first so warnings about the environment honour the log
// flags, then loads the environment configuration and applies the flags over it.
func configure(cmd *cobra.Command, flags *rootFlags, cfg *setup.Config, logOutput io.Writer) error {
	logLevel, logJSON := setup.LogSettingsFromEnv()
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		logLevel = flags.logLevel
	}
	if f := cmd.Flags().Lookup("log-json"); f != nil && f.Changed {
		logJSON = flags.logJSON
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.Config{
		Level:      level,
		Output:     logOutput,
		JSONFormat: logJSON,
	})

	*cfg = *setup.LoadConfigFromEnv()
	applyFlags(cmd, flags, cfg)
	return nil
}

// applyFlags copies the flags set on the command line over the environment configuration.
func applyFlags(cmd *cobra.Command, flags *rootFlags, cfg *setup.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("consumer-key") {
		cfg.ConsumerKey = flags.consumerKey
	}
	if changed("consumer-secret") {
		cfg.ConsumerSecret = flags.consumerSecret
	}
	if changed("connection") {
		cfg.Connection = flags.connection
	}
	if changed("api-url") {
		cfg.TwitterAPIURL = flags.apiURL
	}
	if changed("accounts-file") {
		cfg.AccountsFile = flags.accountsFile
	}
	if changed("bridge-url") {
		cfg.AccountBridgeURL = flags.accountBridgeURL
	}
	if changed("domain") {
		cfg.IdentityDomain = flags.identityDomain
	}
	if changed("client-id") {
		cfg.IdentityClientID = flags.identityClientID
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-json") {
		cfg.LogJSON = flags.logJSON
	}

	if cfg.Connection == "" {
		cfg.Connection = setup.DefaultConnectionName
	}
	slog.Debug("configuration loaded", "connection", cfg.Connection, "accounts_file", cfg.AccountsFile, "bridge", cfg.AccountBridgeURL)
}
