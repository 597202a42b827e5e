package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ProxyAccountStore is an AccountStore served by a device bridge over HTTP.
// The bridge counts as available once it reports the integration and at least one account.
//
//	GET  {url}/status   -> {"available": bool, "accounts": int}
//	POST {url}/access   -> 200 when access is granted
//	GET  {url}/accounts -> [Account, ...]
type ProxyAccountStore struct {
	httpClient *http.Client
	url        string
}

var _ AccountStore = (*ProxyAccountStore)(nil)

func NewProxyAccountStore(url string, client *http.Client) *ProxyAccountStore {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &ProxyAccountStore{
		httpClient: client,
		url:        strings.TrimRight(url, "/"),
	}
}

func (p *ProxyAccountStore) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/status", nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Debug("account bridge unreachable", "url", p.url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var status struct {
		Available bool `json:"available"`
		Accounts  int  `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Available && status.Accounts > 0
}

func (p *ProxyAccountStore) RequestAccess(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/access", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("access refused (status %d), and failed to read response body: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("access refused (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}

func (p *ProxyAccountStore) Accounts(ctx context.Context) ([]Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/accounts", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list accounts: %d", resp.StatusCode)
	}

	var accounts []Account
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	return accounts, nil
}
