package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeFetcher struct {
	calls  int32
	prices map[string]float64
	err    error
}

func (f *fakeFetcher) SimplePrice(ctx context.Context, ids []string) (map[string]float64, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func TestPriceUSD_CacheHitIssuesOneFetch(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"ethereum": 2500.0, "avalanche-2": 30.5}}
	o := New(f, time.Hour, nil)

	price, ok := o.PriceUSD(context.Background(), "ETH")
	if !ok || price != 2500.0 {
		t.Fatalf("first read = (%v, %v), want (2500, true)", price, ok)
	}

	price, ok = o.PriceUSD(context.Background(), "eth")
	if !ok || price != 2500.0 {
		t.Fatalf("second read = (%v, %v), want (2500, true)", price, ok)
	}

	if n := atomic.LoadInt32(&f.calls); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestPriceUSD_BulkRefreshWarmsAllSymbols(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{
		"ethereum":    2500.0,
		"avalanche-2": 30.5,
		"usd-coin":    1.0,
	}}
	o := New(f, time.Hour, nil)

	if _, ok := o.PriceUSD(context.Background(), "ETH"); !ok {
		t.Fatal("ETH price missing")
	}
	// AVAX was fetched in the same bulk request; no second fetch.
	if price, ok := o.PriceUSD(context.Background(), "AVAX"); !ok || price != 30.5 {
		t.Fatalf("AVAX read = (%v, %v), want (30.5, true)", price, ok)
	}
	if n := atomic.LoadInt32(&f.calls); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestPriceUSD_FetchFailureReturnsNotOK(t *testing.T) {
	f := &fakeFetcher{err: errors.New("rate limited")}
	o := New(f, time.Hour, nil)

	if _, ok := o.PriceUSD(context.Background(), "ETH"); ok {
		t.Fatal("expected ok=false on fetch failure")
	}
}

func TestPriceUSD_FailedRefreshKeepsPriorEntries(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"ethereum": 2500.0}}
	o := New(f, time.Hour, nil)

	if _, ok := o.PriceUSD(context.Background(), "ETH"); !ok {
		t.Fatal("warm-up read failed")
	}

	// Later refreshes fail, but the cached ETH entry is still fresh.
	f.err = errors.New("down")
	if price, ok := o.PriceUSD(context.Background(), "ETH"); !ok || price != 2500.0 {
		t.Fatalf("read after failure = (%v, %v), want (2500, true)", price, ok)
	}
	// A symbol that was never cached stays unavailable.
	if _, ok := o.PriceUSD(context.Background(), "SOL"); ok {
		t.Fatal("expected ok=false for never-cached symbol after failed refresh")
	}
}

func TestPriceUSD_UntrackedSymbol(t *testing.T) {
	f := &fakeFetcher{prices: map[string]float64{"ethereum": 2500.0}}
	o := New(f, time.Hour, nil)

	if _, ok := o.PriceUSD(context.Background(), "DOGE"); ok {
		t.Fatal("expected ok=false for untracked symbol")
	}
	if n := atomic.LoadInt32(&f.calls); n != 0 {
		t.Errorf("fetch calls = %d, want 0 for untracked symbol", n)
	}
}

func TestCoinGeckoClient_SimplePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Errorf("vs_currencies = %s", got)
		}
		if got := r.Header.Get("x-cg-demo-api-key"); got != "demo-key" {
			t.Errorf("api key header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"ethereum": {"usd": 2500.25},
			"tether":   {"usd": 1.0},
		})
	}))
	defer srv.Close()

	client := NewCoinGeckoClient("demo-key", srv.Client())
	client.SetBaseURL(srv.URL)

	prices, err := client.SimplePrice(context.Background(), []string{"ethereum", "tether"})
	if err != nil {
		t.Fatal(err)
	}
	if prices["ethereum"] != 2500.25 {
		t.Errorf("ethereum = %v, want 2500.25", prices["ethereum"])
	}
}

func TestCoinGeckoClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewCoinGeckoClient("", srv.Client())
	client.SetBaseURL(srv.URL)

	if _, err := client.SimplePrice(context.Background(), []string{"ethereum"}); err == nil {
		t.Fatal("expected error on 429")
	}
}
