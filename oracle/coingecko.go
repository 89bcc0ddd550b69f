package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com"
	demoAPIKeyHeader    = "x-cg-demo-api-key"
)

// CoinGeckoClient fetches USD spot prices from the CoinGecko simple-price
// endpoint. Requests are rate limited so that bulk cache refreshes stay
// within the public API allowance.
type CoinGeckoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewCoinGeckoClient builds a client against the public CoinGecko API.
// apiKey is sent as the demo key header; it may be empty.
func NewCoinGeckoClient(apiKey string, httpClient *http.Client) *CoinGeckoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &CoinGeckoClient{
		baseURL: defaultCoinGeckoURL,
		apiKey:  apiKey,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 2),
	}
}

// SetBaseURL overrides the API host, primarily for tests.
func (c *CoinGeckoClient) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// SimplePrice returns the USD price for each requested coin id. Ids absent
// from the response are simply missing from the result map.
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, ids []string) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set(demoAPIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("coingecko response decode failed: %w", err)
	}

	prices := make(map[string]float64, len(body))
	for id, entry := range body {
		prices[id] = entry.USD
	}
	return prices, nil
}
