package authenticator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/NethermindEth/locktwitter/pkg/accountstore"
	"github.com/NethermindEth/locktwitter/pkg/identity"
	"github.com/NethermindEth/locktwitter/pkg/twitter"
)

func testAccount(id, username string) twitter.Account {
	return twitter.Account{
		Identifier:     id,
		Username:       username,
		ConsumerKey:    "device-key",
		ConsumerSecret: "device-secret",
		Token:          username + "-token",
		TokenSecret:    username + "-secret",
	}
}

type fakeTwitter struct {
	server        *httptest.Server
	signatures    atomic.Int32
	tokens        atomic.Int32
	tokenBody     string
	blockRequests bool
}

func newFakeTwitter(t *testing.T) *fakeTwitter {
	t.Helper()
	f := &fakeTwitter{tokenBody: "oauth_token=42-app-token&oauth_token_secret=app-token-secret&user_id=42&screen_name=alice"}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		f.signatures.Add(1)
		if f.blockRequests {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		r.ParseForm()
		if r.PostForm.Get("x_auth_mode") != "reverse_auth" {
			t.Errorf("unexpected x_auth_mode %q", r.PostForm.Get("x_auth_mode"))
		}
		fmt.Fprint(w, "OAuth oauth_signature=\"sig\"")
	})
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokens.Add(1)
		r.ParseForm()
		if r.PostForm.Get("x_reverse_auth_target") != "app-key" {
			t.Errorf("unexpected reverse auth target %q", r.PostForm.Get("x_reverse_auth_target"))
		}
		if r.PostForm.Get("x_reverse_auth_parameters") != "OAuth oauth_signature=\"sig\"" {
			t.Errorf("unexpected reverse auth parameters %q", r.PostForm.Get("x_reverse_auth_parameters"))
		}
		fmt.Fprint(w, f.tokenBody)
	})
	mux.HandleFunc("/1.1/account/verify_credentials.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(twitter.User{ID: "42", ScreenName: "alice_verified"})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTwitter) client(t *testing.T) *twitter.ReverseAuthClient {
	t.Helper()
	client, err := twitter.NewReverseAuthClient(&twitter.ReverseAuthClientConfig{
		BaseURL:        f.server.URL,
		HTTPClient:     f.server.Client(),
		RateLimiter:    rate.NewLimiter(rate.Every(time.Millisecond), 1),
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewReverseAuthClient() error = %v", err)
	}
	return client
}

type fakeIdentity struct {
	server   *httptest.Server
	mu       sync.Mutex
	payloads []map[string]any
	status   int
}

func newFakeIdentity(t *testing.T) *fakeIdentity {
	t.Helper()
	f := &fakeIdentity{status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode identity payload: %v", err)
		}
		f.mu.Lock()
		f.payloads = append(f.payloads, payload)
		f.mu.Unlock()

		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			json.NewEncoder(w).Encode(map[string]string{"error": "access_denied", "error_description": "connection disabled"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "platform-access-token",
			"id_token":     "platform-id-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIdentity) client(t *testing.T) *identity.Client {
	t.Helper()
	client, err := identity.NewClient(&identity.Config{
		Domain:     f.server.URL,
		ClientID:   "client-123",
		HTTPClient: f.server.Client(),
	})
	if err != nil {
		t.Fatalf("identity.NewClient() error = %v", err)
	}
	return client
}

func (f *fakeIdentity) lastPayload() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	return f.payloads[len(f.payloads)-1]
}

func (f *fakeIdentity) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newTestAuthenticator(t *testing.T, tw *fakeTwitter, id *fakeIdentity, store twitter.AccountStore, opts ...Option) *TwitterAuthenticator {
	t.Helper()
	base := []Option{
		WithAccountStore(store),
		WithReverseAuthClient(tw.client(t)),
		WithIdentityClient(id.client(t)),
	}
	return NewAuthenticatorWithConnectionName("twitter-prod", "app-key", append(base, opts...)...)
}

func singleAccountStore() *accountstore.MemoryStore {
	return accountstore.NewMemoryStore(testAccount("acct-1", "alice"))
}
