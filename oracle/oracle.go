// Package oracle provides USD prices for payment tokens, cached in-process
// with a fixed freshness window and refreshed in bulk from CoinGecko.
package oracle

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mileston/pay-go/logger"
)

// DefaultTTL is the price freshness window.
const DefaultTTL = time.Hour

// Tracked symbols and their CoinGecko coin ids. Every refresh fetches the
// full set so a single miss warms the whole cache.
var coinIDBySymbol = map[string]string{
	"ETH":  "ethereum",
	"POL":  "matic-network",
	"SUI":  "sui",
	"AVAX": "avalanche-2",
	"USDC": "usd-coin",
	"USDT": "tether",
	"SOL":  "solana",
}

// PriceFetcher is the bulk price source. *CoinGeckoClient satisfies it.
type PriceFetcher interface {
	SimplePrice(ctx context.Context, ids []string) (map[string]float64, error)
}

// Oracle is a read-through TTL cache over a PriceFetcher. Concurrent stale
// reads may each trigger a refresh; the fetches are idempotent so the races
// converge on the same values.
type Oracle struct {
	fetcher PriceFetcher
	cache   *gocache.Cache
	log     logger.Logger
}

// New builds an Oracle with the given freshness window. A zero ttl means
// DefaultTTL.
func New(fetcher PriceFetcher, ttl time.Duration, log logger.Logger) *Oracle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Oracle{
		fetcher: fetcher,
		cache:   gocache.New(ttl, 10*time.Minute),
		log:     log,
	}
}

// PriceUSD returns the cached USD price for a tracked symbol, refreshing the
// entire cache when the entry is missing or stale. A failed refresh returns
// ok=false and leaves previously cached entries untouched.
func (o *Oracle) PriceUSD(ctx context.Context, symbol string) (float64, bool) {
	symbol = strings.ToUpper(symbol)
	if _, tracked := coinIDBySymbol[symbol]; !tracked {
		return 0, false
	}

	if price, found := o.cache.Get(symbol); found {
		return price.(float64), true
	}

	if err := o.refresh(ctx); err != nil {
		o.log.Warn("price refresh failed", map[string]any{"symbol": symbol, "error": err.Error()})
		return 0, false
	}

	if price, found := o.cache.Get(symbol); found {
		return price.(float64), true
	}
	return 0, false
}

// refresh fetches prices for every tracked symbol and overwrites the cache
// wholesale on success.
func (o *Oracle) refresh(ctx context.Context) error {
	ids := make([]string, 0, len(coinIDBySymbol))
	for _, id := range coinIDBySymbol {
		ids = append(ids, id)
	}

	prices, err := o.fetcher.SimplePrice(ctx, ids)
	if err != nil {
		return err
	}

	for symbol, id := range coinIDBySymbol {
		if price, ok := prices[id]; ok && price > 0 {
			o.cache.Set(symbol, price, gocache.DefaultExpiration)
		}
	}
	return nil
}
