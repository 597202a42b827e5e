package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/NethermindEth/locktwitter/pkg/accountstore"
	"github.com/NethermindEth/locktwitter/pkg/authenticator"
	"github.com/NethermindEth/locktwitter/pkg/debug"
	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/service"
	"github.com/NethermindEth/locktwitter/pkg/setup"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
	"github.com/NethermindEth/locktwitter/pkg/utils/errors"
	"github.com/NethermindEth/locktwitter/pkg/utils/metrics"
)

func newCheckCommand(cfg *setup.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether native Twitter authentication can be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cfg.AccountStore()
			if !authenticator.CanAuthenticateWith(cmd.Context(), store) {
				fmt.Printf("%s Native Twitter authentication is not available\n", fail("❌"))
				if fs, ok := store.(*accountstore.FileStore); ok {
					fmt.Printf("%s No readable accounts file at %s\n", warn("!"), fs.Path())
				}
				return fmt.Errorf("native twitter authentication unavailable")
			}
			fmt.Printf("%s Native Twitter authentication is available\n", success("✓"))
			return nil
		},
	}
}

func newLoginCommand(cfg *setup.Config) *cobra.Command {
	var (
		scope      string
		username   string
		parameters map[string]string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with the Twitter account registered on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			s.Suffix = " Running Twitter reverse auth..."

			var chooser twitter.AccountChooser
			if username != "" {
				chooser = accountstore.UsernameChooser(username)
			} else {
				chooser = &spinnerChooser{
					spinner: s,
					chooser: &accountstore.PromptChooser{In: os.Stdin, Out: os.Stderr},
				}
			}

			reverseAuth, err := cfg.ReverseAuthClient(slog.Default())
			if err != nil {
				return reportError(errors.Wrap(err, errors.TypeSetup, "failed to configure twitter client"))
			}
			identityClient, err := cfg.IdentityClient(slog.Default())
			if err != nil {
				return reportError(errors.Wrap(err, errors.TypeSetup, "failed to configure identity client"))
			}

			auth := authenticator.NewAuthenticatorWithConnectionName(cfg.Connection, cfg.ConsumerKey,
				authenticator.WithAccountStore(cfg.AccountStore()),
				authenticator.WithAccountChooser(chooser),
				authenticator.WithReverseAuthClient(reverseAuth),
				authenticator.WithIdentityClient(identityClient),
				authenticator.WithConsumerSecret(cfg.ConsumerSecret),
			)

			fmt.Fprintf(os.Stderr, "\n%s Logging in to connection %s...\n", info("🔑"), cfg.Connection)

			s.Start()
			credentials, err := auth.Authenticate(ctx, authenticator.LoginOptions{
				Scope:      scope,
				Parameters: toParameters(parameters),
			})
			s.Stop()
			if err != nil {
				return reportError(err)
			}

			fmt.Fprintf(os.Stderr, "%s Logged in\n", success("✓"))
			printCredentials(credentials)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", identity.DefaultScope, "Scope requested from the identity platform")
	cmd.Flags().StringVar(&username, "account", "", "Username of the device account to use, prompts when several are registered")
	cmd.Flags().StringToStringVar(&parameters, "param", nil, "Extra token exchange parameter as key=value (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Login timeout")

	return cmd
}

func newServeCommand(cfg *setup.Config) *cobra.Command {
	var (
		serverAddr   string
		maxLogins    int
		loginTimeout time.Duration
		cacheSize    int
		cacheTTL     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve logins over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			reverseAuth, err := cfg.ReverseAuthClient(slog.Default())
			if err != nil {
				return reportError(errors.Wrap(err, errors.TypeSetup, "failed to configure twitter client"))
			}
			identityClient, err := cfg.IdentityClient(slog.Default())
			if err != nil {
				return reportError(errors.Wrap(err, errors.TypeSetup, "failed to configure identity client"))
			}

			collector := metrics.NewMetricsCollector()
			auth := authenticator.NewAuthenticatorWithConnectionName(cfg.Connection, cfg.ConsumerKey,
				authenticator.WithAccountStore(cfg.AccountStore()),
				authenticator.WithAccountChooser(accountstore.FirstChooser{}),
				authenticator.WithReverseAuthClient(reverseAuth),
				authenticator.WithIdentityClient(identityClient),
				authenticator.WithConsumerSecret(cfg.ConsumerSecret),
				authenticator.WithCredentialsCache(identity.NewCredentialsCache(cacheSize, cacheTTL)),
				authenticator.WithMetrics(collector),
			)

			svc, err := service.NewLoginService(&service.LoginServiceConfig{
				Authenticator:       auth,
				ServerAddr:          serverAddr,
				MaxConcurrentLogins: maxLogins,
				LoginTimeout:        loginTimeout,
				Metrics:             collector,
			})
			if err != nil {
				slog.Error("failed to create login service", "error", err)
				return err
			}

			return svc.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server-addr", ":8080", "Server address to listen on")
	cmd.Flags().IntVar(&maxLogins, "max-logins", 4, "Maximum number of concurrent logins")
	cmd.Flags().DurationVar(&loginTimeout, "login-timeout", 2*time.Minute, "Timeout of a single login")
	cmd.Flags().IntVar(&cacheSize, "cache-size", 100, "Number of credentials kept in the cache")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", time.Hour, "Maximum age of cached credentials")

	return cmd
}

// spinnerChooser pauses the spinner while the user picks an account.
type spinnerChooser struct {
	spinner *spinner.Spinner
	chooser twitter.AccountChooser
}

func (c *spinnerChooser) ChooseAccount(ctx context.Context, accounts []twitter.Account) (*twitter.Account, error) {
	c.spinner.Stop()
	defer c.spinner.Start()
	return c.chooser.ChooseAccount(ctx, accounts)
}

func toParameters(values map[string]string) map[string]any {
	if len(values) == 0 {
		return nil
	}
	parameters := make(map[string]any, len(values))
	for k, v := range values {
		parameters[k] = v
	}
	return parameters
}

func printCredentials(credentials *identity.Credentials) {
	out := map[string]any{
		"access_token": debug.Redact(credentials.AccessToken),
		"token_type":   credentials.TokenType,
	}
	if credentials.IDToken != "" {
		out["id_token"] = debug.Redact(credentials.IDToken)
	}
	if credentials.ExpiresAt != nil {
		out["expires_at"] = credentials.ExpiresAt.Format(time.RFC3339)
	}
	if credentials.Scope != "" {
		out["scope"] = credentials.Scope
	}

	if profile, err := credentials.Profile(); err == nil {
		out["subject"] = profile.Subject
		if profile.Nickname != "" {
			out["nickname"] = profile.Nickname
		}
	} else {
		slog.Debug("no profile in credentials", "error", err)
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func reportError(err error) error {
	errType := errors.TypeOf(err)
	fmt.Fprintf(os.Stderr, "%s %v\n", fail("❌"), err)

	attrs := []any{"error", err, "type", errType}
	if e, ok := err.(*errors.Error); ok {
		attrs = append(attrs, "stack", e.Stack)
	}
	slog.Debug("command failed", attrs...)

	for _, hint := range hintFor(errType) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warn("!"), hint)
	}
	return err
}

func hintFor(errType errors.ErrorType) []string {
	switch errType {
	case errors.TypeValidation:
		return []string{"Set " + setup.TwitterConsumerKeyKey + " or pass --consumer-key"}
	case errors.TypeSetup:
		return []string{
			"Set " + setup.IdentityClientIDKey + " or pass --client-id",
			"Set " + setup.IdentityDomainKey + " or pass --domain",
		}
	case errors.TypeAccount:
		return []string{"Run `locktwitter check` to inspect the device accounts"}
	default:
		return nil
	}
}
