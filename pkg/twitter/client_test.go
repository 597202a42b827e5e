package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

var testAccount = Account{
	Identifier:     "acct-1",
	Username:       "alice",
	ConsumerKey:    "device-key",
	ConsumerSecret: "device-secret",
	Token:          "device-token",
	TokenSecret:    "device-token-secret",
}

func newTestClient(t *testing.T, server *httptest.Server) *ReverseAuthClient {
	t.Helper()
	client, err := NewReverseAuthClient(&ReverseAuthClientConfig{
		BaseURL:        server.URL,
		HTTPClient:     server.Client(),
		RateLimiter:    rate.NewLimiter(rate.Every(time.Millisecond), 1),
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewReverseAuthClient() error = %v", err)
	}
	return client
}

func checkSigned(t *testing.T, r *http.Request) {
	t.Helper()
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "OAuth ") {
		t.Errorf("expected OAuth authorization header, got %q", auth)
	}
	if !strings.Contains(auth, `oauth_consumer_key="device-key"`) {
		t.Errorf("expected device consumer key in header, got %q", auth)
	}
	if !strings.Contains(auth, `oauth_token="device-token"`) {
		t.Errorf("expected device token in header, got %q", auth)
	}
}

func TestNewReverseAuthClient(t *testing.T) {
	tests := []struct {
		name    string
		config  *ReverseAuthClientConfig
		wantErr error
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "relative base url",
			config:  &ReverseAuthClientConfig{BaseURL: "api.twitter.com"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "defaults",
			config:  &ReverseAuthClientConfig{},
			wantErr: nil,
		},
		{
			name:    "custom base url",
			config:  &ReverseAuthClientConfig{BaseURL: "http://localhost:9999/"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReverseAuthClient(tt.config)
			if err != tt.wantErr {
				t.Errorf("NewReverseAuthClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReverseAuthClient_RetrieveSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/oauth/request_token" {
			t.Errorf("Expected path /oauth/request_token, got %s", r.URL.Path)
		}
		checkSigned(t, r)

		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if mode := r.PostForm.Get("x_auth_mode"); mode != "reverse_auth" {
			t.Errorf("Expected x_auth_mode=reverse_auth, got %q", mode)
		}

		fmt.Fprint(w, `OAuth oauth_nonce="abc", oauth_signature="sig", oauth_token="req"`)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	signature, err := client.RetrieveSignature(context.Background(), &testAccount)
	if err != nil {
		t.Fatalf("RetrieveSignature() error = %v", err)
	}
	if signature != `OAuth oauth_nonce="abc", oauth_signature="sig", oauth_token="req"` {
		t.Errorf("unexpected signature %q", signature)
	}
}

func TestReverseAuthClient_RetrieveSignature_InvalidAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid account")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	account := testAccount
	account.TokenSecret = ""

	_, err := client.RetrieveSignature(context.Background(), &account)
	if !errors.Is(err, ErrSignatureRequest) {
		t.Errorf("Expected ErrSignatureRequest, got %v", err)
	}
}

func TestReverseAuthClient_RetrieveToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/access_token" {
			t.Errorf("Expected path /oauth/access_token, got %s", r.URL.Path)
		}
		checkSigned(t, r)

		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if target := r.PostForm.Get("x_reverse_auth_target"); target != "app-key" {
			t.Errorf("Expected x_reverse_auth_target=app-key, got %q", target)
		}
		if params := r.PostForm.Get("x_reverse_auth_parameters"); params != "signed-params" {
			t.Errorf("Expected x_reverse_auth_parameters=signed-params, got %q", params)
		}

		fmt.Fprint(w, "oauth_token=42-abc&oauth_token_secret=s%3Dcret&user_id=42&screen_name=alice")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	token, err := client.RetrieveToken(context.Background(), "signed-params", &testAccount, "app-key")
	if err != nil {
		t.Fatalf("RetrieveToken() error = %v", err)
	}

	if token.OAuthToken() != "42-abc" {
		t.Errorf("Expected oauth_token 42-abc, got %s", token.OAuthToken())
	}
	if token.OAuthTokenSecret() != "s=cret" {
		t.Errorf("Expected decoded oauth_token_secret, got %s", token.OAuthTokenSecret())
	}
	if token.UserID() != "42" {
		t.Errorf("Expected user_id 42, got %s", token.UserID())
	}
	if token.ScreenName() != "alice" {
		t.Errorf("Expected screen_name alice, got %s", token.ScreenName())
	}
	if !token.Complete() {
		t.Error("Expected token to be complete")
	}
}

func TestReverseAuthClient_RetrieveToken_MissingConsumerKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a consumer key")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.RetrieveToken(context.Background(), "signed-params", &testAccount, "")
	if !errors.Is(err, ErrReverseAuthRequest) {
		t.Errorf("Expected ErrReverseAuthRequest, got %v", err)
	}
}

func TestReverseAuthClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"code": 89, "message": "Invalid or expired token."}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.RetrieveSignature(context.Background(), &testAccount)
	if !errors.Is(err, ErrSignatureRequest) {
		t.Fatalf("Expected ErrSignatureRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "twitter API error: Invalid or expired token.") {
		t.Errorf("Expected Twitter message in error, got %v", err)
	}
}

func TestReverseAuthClient_Retries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "oauth_token=t&oauth_token_secret=s&user_id=1")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	token, err := client.RetrieveToken(context.Background(), "signed-params", &testAccount, "app-key")
	if err != nil {
		t.Fatalf("RetrieveToken() with retries error = %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
	if token.UserID() != "1" {
		t.Errorf("Expected user_id 1, got %s", token.UserID())
	}
}

func TestReverseAuthClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.RetrieveToken(context.Background(), "signed-params", &testAccount, "app-key")
	if !errors.Is(err, ErrReverseAuthRequest) {
		t.Fatalf("Expected ErrReverseAuthRequest, got %v", err)
	}
	if attempts.Load() != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts.Load())
	}
}

func TestReverseAuthClient_RateLimitReset(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("x-rate-limit-remaining", "0")
			w.Header().Set("x-rate-limit-reset", fmt.Sprintf("%d", time.Now().Add(time.Second).Unix()))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "signature")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.RetrieveSignature(context.Background(), &testAccount)
	if err != nil {
		t.Fatalf("RetrieveSignature() error = %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestReverseAuthClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, "signature")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.RetrieveSignature(ctx, &testAccount)
	if err == nil {
		t.Fatal("Expected context deadline exceeded error, got nil")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestReverseAuthClient_RateLimiting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "signature")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	client.rateLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.RetrieveSignature(context.Background(), &testAccount); err != nil {
			t.Errorf("RetrieveSignature() error = %v", err)
		}
	}
	duration := time.Since(start)

	if duration < 200*time.Millisecond {
		t.Errorf("Expected rate limiting to enforce minimum 200ms duration, got %v", duration)
	}
}

func TestReverseAuthClient_VerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/account/verify_credentials.json" {
			t.Errorf("Expected verify_credentials path, got %s", r.URL.Path)
		}
		auth := r.Header.Get("Authorization")
		if !strings.Contains(auth, `oauth_consumer_key="app-key"`) || !strings.Contains(auth, `oauth_token="42-abc"`) {
			t.Errorf("Expected request signed with app key and issued token, got %q", auth)
		}
		json.NewEncoder(w).Encode(User{ID: "42", ScreenName: "alice", Name: "Alice"})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	token := ReverseAuthToken{
		TokenKeyOAuthToken:       "42-abc",
		TokenKeyOAuthTokenSecret: "secret",
		TokenKeyUserID:           "42",
	}

	user, err := client.VerifyCredentials(context.Background(), "app-key", "app-secret", token)
	if err != nil {
		t.Fatalf("VerifyCredentials() error = %v", err)
	}
	if user.ScreenName != "alice" {
		t.Errorf("Expected screen name alice, got %s", user.ScreenName)
	}

	token[TokenKeyUserID] = "43"
	if _, err := client.VerifyCredentials(context.Background(), "app-key", "app-secret", token); err == nil {
		t.Error("Expected mismatch error, got nil")
	}

	if _, err := client.VerifyCredentials(context.Background(), "app-key", "", token); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
