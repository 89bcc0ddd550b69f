package pay

import (
	"net/http"
	"time"

	"github.com/mileston/pay-go/logger"
	"github.com/mileston/pay-go/metrics"
	"github.com/mileston/pay-go/orchestrator"
	"github.com/mileston/pay-go/txbuilder"
	"github.com/mileston/pay-go/wallet"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.rec = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithWallets registers the wallet providers the embedder can reach.
func WithWallets(providers ...wallet.Provider) Option {
	return func(c *Client) {
		c.wallets = wallet.NewRegistry(providers...)
	}
}

// WithPriceSource replaces the CoinGecko-backed oracle.
func WithPriceSource(p txbuilder.PriceSource) Option {
	return func(c *Client) {
		c.prices = p
	}
}

// WithCoinGeckoAPIKey authenticates price lookups against CoinGecko.
func WithCoinGeckoAPIKey(key string) Option {
	return func(c *Client) {
		c.coinGeckoKey = key
	}
}

// WithBackendDialer replaces how chain RPC connections are opened.
func WithBackendDialer(dial orchestrator.BackendDialer) Option {
	return func(c *Client) {
		c.dial = dial
	}
}
