// Package identity exchanges social provider tokens for identity platform credentials.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	socialAccessTokenPath = "/oauth/access_token"

	DefaultScope = "openid"

	defaultRequestTimeout = 30 * time.Second
)

type Config struct {
	// Domain of the identity platform tenant, with or without scheme.
	Domain     string
	ClientID   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(config *Config) (*Client, error) {
	if config == nil || config.Domain == "" || config.ClientID == "" {
		return nil, ErrInvalidConfig
	}

	domain := config.Domain
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: bad domain %q", ErrInvalidConfig, config.Domain)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		clientID:   config.ClientID,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (c *Client) ClientID() string {
	return c.clientID
}

type SocialLoginRequest struct {
	// AccessToken issued by the social provider.
	AccessToken string
	Connection  string
	Scope       string
	// Parameters are merged into the request body. They cannot override the fields above.
	Parameters map[string]any
}

// LoginSocial exchanges a social provider access token for credentials.
func (c *Client) LoginSocial(ctx context.Context, req SocialLoginRequest) (*Credentials, error) {
	if req.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", ErrInvalidRequest)
	}
	if req.Connection == "" {
		return nil, fmt.Errorf("%w: missing connection", ErrInvalidRequest)
	}

	scope := req.Scope
	if scope == "" {
		scope = DefaultScope
	}

	payload := make(map[string]any, len(req.Parameters)+4)
	for k, v := range req.Parameters {
		payload[k] = v
	}
	payload["client_id"] = c.clientID
	payload["access_token"] = req.AccessToken
	payload["connection"] = req.Connection
	payload["scope"] = scope

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+socialAccessTokenPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var credentials Credentials
	if err := json.NewDecoder(resp.Body).Decode(&credentials); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if credentials.AccessToken == "" {
		return nil, fmt.Errorf("decode response: missing access_token")
	}
	if credentials.ExpiresIn > 0 {
		expiresAt := c.now().Add(time.Duration(credentials.ExpiresIn) * time.Second)
		credentials.ExpiresAt = &expiresAt
	}

	c.logger.Debug("social login succeeded", "connection", req.Connection, "token_type", credentials.TokenType)
	return &credentials, nil
}

func decodeError(resp *http.Response) error {
	authErr := &AuthenticationError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		authErr.Code = "unknown_error"
		return authErr
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		authErr.Code = "unknown_error"
		authErr.Description = strings.TrimSpace(string(body))
		return authErr
	}

	authErr.Code = errResp.Error
	if authErr.Code == "" {
		authErr.Code = errResp.Code
	}
	if authErr.Code == "" {
		authErr.Code = "unknown_error"
	}
	authErr.Description = errResp.ErrorDescription
	if authErr.Description == "" {
		authErr.Description = errResp.Description
	}
	return authErr
}
