package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// DuneClient fetches token USD prices from a saved Dune query. The prices are
// only used for off-chain balances, which carry no embedded price of their own.
type DuneClient struct {
	baseURL    string
	apiKey     string
	queryID    string
	httpClient *http.Client
}

// NewDuneClient creates a new Dune query-results client.
func NewDuneClient(baseURL, apiKey, queryID string) *DuneClient {
	return &DuneClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		queryID:    queryID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type duneResponse struct {
	Result struct {
		Rows []struct {
			TokenSymbol string  `json:"token_symbol"`
			USDPrice    float64 `json:"usd_price"`
		} `json:"rows"`
	} `json:"result"`
}

// Prices returns a token_symbol -> USD price map from the query results.
func (c *DuneClient) Prices(ctx context.Context) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/api/v1/query/%s/results?api_key=%s", c.baseURL, c.queryID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Dune request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Dune request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Dune response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Dune HTTP %d: %s", resp.StatusCode, body)
	}

	var parsed duneResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing Dune response: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(parsed.Result.Rows))
	for _, row := range parsed.Result.Rows {
		if row.TokenSymbol == "" {
			continue
		}
		prices[row.TokenSymbol] = decimal.NewFromFloat(row.USDPrice)
	}
	return prices, nil
}
