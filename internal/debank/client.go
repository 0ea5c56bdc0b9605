package debank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP client for the Debank Pro OpenAPI with retry on
// rate-limit and server-error responses. Client errors (4xx below 429) are
// terminal and never retried.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a new Debank API client.
func NewClient(baseURL, accessKey string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// AllTokenList fetches all token balances for a wallet across the given chains.
func (c *Client) AllTokenList(ctx context.Context, wallet string, chainIDs []string) ([]Token, error) {
	params := url.Values{
		"id":        {wallet},
		"chain_ids": {strings.Join(chainIDs, ",")},
		"is_all":    {"false"},
	}

	var tokens []Token
	if err := c.getJSON(ctx, "/v1/user/all_token_list", params, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// AllComplexProtocolList fetches all DeFi protocol positions for a wallet
// across the given chains, with nested supply/reward/borrow legs.
func (c *Client) AllComplexProtocolList(ctx context.Context, wallet string, chainIDs []string) ([]Protocol, error) {
	params := url.Values{
		"id":        {wallet},
		"chain_ids": {strings.Join(chainIDs, ",")},
	}

	var protocols []Protocol
	if err := c.getJSON(ctx, "/v1/user/all_complex_protocol_list", params, &protocols); err != nil {
		return nil, err
	}
	return protocols, nil
}

// get performs a GET request with exponential backoff on 429/5xx.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("AccessKey", c.accessKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode >= http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP %d from %s (attempt %d/%d)",
				resp.StatusCode, path, attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, path, truncate(string(body), 100))
	}

	return nil, lastErr
}

// getJSON performs a GET request and unmarshals the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
