package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"
)

const (
	reverseAuthMode = "reverse_auth"

	paramAuthMode              = "x_auth_mode"
	paramReverseAuthTarget     = "x_reverse_auth_target"
	paramReverseAuthParameters = "x_reverse_auth_parameters"

	formContentType = "application/x-www-form-urlencoded"
)

// RetrieveSignature asks Twitter for the signed request token parameters that start a
// reverse auth handshake. The request is signed with account's credential and the response
// body is returned verbatim.
func (c *ReverseAuthClient) RetrieveSignature(ctx context.Context, account *Account) (string, error) {
	if account == nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureRequest, ErrInvalidAccount)
	}
	if err := account.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureRequest, err)
	}

	form := url.Values{}
	form.Set(paramAuthMode, reverseAuthMode)

	body, err := c.postForm(ctx, account, c.endpoint(requestTokenPath), form)
	if err != nil {
		if isContextError(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrSignatureRequest, err)
	}

	signature := string(body)
	if strings.TrimSpace(signature) == "" {
		return "", fmt.Errorf("%w: empty response", ErrSignatureRequest)
	}

	c.logger.Debug("reverse auth signature received", "account", account.Identifier)
	return signature, nil
}

// RetrieveToken exchanges signature for an access token issued to consumerKey.
func (c *ReverseAuthClient) RetrieveToken(ctx context.Context, signature string, account *Account, consumerKey string) (ReverseAuthToken, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: %v", ErrReverseAuthRequest, ErrInvalidAccount)
	}
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReverseAuthRequest, err)
	}
	if consumerKey == "" {
		return nil, fmt.Errorf("%w: missing consumer key", ErrReverseAuthRequest)
	}

	form := url.Values{}
	form.Set(paramReverseAuthTarget, consumerKey)
	form.Set(paramReverseAuthParameters, signature)

	body, err := c.postForm(ctx, account, c.endpoint(accessTokenPath), form)
	if err != nil {
		if isContextError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrReverseAuthRequest, err)
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrReverseAuthRequest, err)
	}

	token := make(ReverseAuthToken, len(values))
	for key := range values {
		token[key] = values.Get(key)
	}

	c.logger.Debug("reverse auth token received", "account", account.Identifier, "user_id", token.UserID())
	return token, nil
}

// VerifyCredentials checks a token issued by reverse auth. The token belongs to the
// application, so the application's consumer secret is needed to sign the call.
func (c *ReverseAuthClient) VerifyCredentials(ctx context.Context, consumerKey, consumerSecret string, token ReverseAuthToken) (*User, error) {
	if consumerKey == "" || consumerSecret == "" {
		return nil, fmt.Errorf("%w: missing consumer key or secret", ErrInvalidConfig)
	}
	if !token.Complete() {
		return nil, ErrMissingToken
	}

	client := c.signedClient(ctx, oauth1.NewConfig(consumerKey, consumerSecret), oauth1.NewToken(token.OAuthToken(), token.OAuthTokenSecret()))

	resp, err := c.doRequest(ctx, client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(verifyCredentialsPath), nil)
	})
	if err != nil {
		if isContextError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if user.ID != token.UserID() {
		return nil, fmt.Errorf("verified user %s does not match token user %s", user.ID, token.UserID())
	}

	return &user, nil
}

func (c *ReverseAuthClient) postForm(ctx context.Context, account *Account, endpoint string, form url.Values) ([]byte, error) {
	client := c.signedClient(ctx, account.oauthConfig(), account.oauthToken())
	encoded := form.Encode()

	resp, err := c.doRequest(ctx, client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", formContentType)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func decodeErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("twitter API error: status code %d", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Errors) > 0 {
		return fmt.Errorf("twitter API error: %s", errResp.Errors[0].Message)
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return fmt.Errorf("twitter API error: status code %d: %s", resp.StatusCode, text)
	}
	return fmt.Errorf("twitter API error: status code %d", resp.StatusCode)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
