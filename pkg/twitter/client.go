package twitter

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIBaseURL = "https://api.twitter.com"

	requestTokenPath      = "/oauth/request_token"
	accessTokenPath       = "/oauth/access_token"
	verifyCredentialsPath = "/1.1/account/verify_credentials.json"

	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

type ReverseAuthClientConfig struct {
	// BaseURL of the Twitter API, DefaultAPIBaseURL when empty.
	BaseURL    string
	HTTPClient *http.Client
	// RateLimiter throttles outgoing requests. Defaults to 5 requests per second.
	RateLimiter    *rate.Limiter
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *slog.Logger
}

// ReverseAuthClient performs the two Twitter legs of reverse authentication.
type ReverseAuthClient struct {
	baseURL        string
	client         *http.Client
	rateLimiter    *rate.Limiter
	maxRetries     uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func NewReverseAuthClient(config *ReverseAuthClientConfig) (*ReverseAuthClient, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidConfig
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	limiter := config.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	}

	maxRetries := config.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	initialBackoff := config.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = defaultInitialBackoff
	}
	maxBackoff := config.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = defaultMaxBackoff
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ReverseAuthClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		rateLimiter:    limiter,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		logger:         logger,
	}, nil
}

// signedClient returns an HTTP client that OAuth1-signs every request with the given
// consumer and token, sending through c.client's transport.
func (c *ReverseAuthClient) signedClient(ctx context.Context, config *oauth1.Config, token *oauth1.Token) *http.Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, c.client)
	signed := config.Client(ctx, token)
	signed.Timeout = c.client.Timeout
	return signed
}

func (c *ReverseAuthClient) endpoint(path string) string {
	return c.baseURL + path
}
