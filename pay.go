// Package pay is an embeddable SDK for the Mileston hosted checkout: direct
// on-chain payments through the embedder's wallet, popup checkout sessions,
// and the backend verification, persistence, and onramp endpoints.
package pay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mileston/pay-go/checkout"
	"github.com/mileston/pay-go/logger"
	"github.com/mileston/pay-go/metrics"
	"github.com/mileston/pay-go/oracle"
	"github.com/mileston/pay-go/orchestrator"
	"github.com/mileston/pay-go/txbuilder"
	"github.com/mileston/pay-go/types"
	"github.com/mileston/pay-go/verification"
	"github.com/mileston/pay-go/wallet"
)

// Client is the SDK entry point. Build one per embedder with New and share it
// across payments.
type Client struct {
	cfg     types.ClientConfig
	timeout time.Duration

	log  logger.Logger
	rec  metrics.Recorder
	http *http.Client

	wallets      *wallet.Registry
	prices       txbuilder.PriceSource
	dial         orchestrator.BackendDialer
	coinGeckoKey string

	backend *verification.Client
	orch    *orchestrator.Orchestrator
}

// New builds a Client from the configuration and options.
func New(cfg types.ClientConfig, opts ...Option) (*Client, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, types.NewPayError(types.CodeMissingParameters, "client configuration is incomplete", err)
	}

	c := &Client{
		cfg:     cfg,
		timeout: cfg.DefaultTimeout,
		wallets: wallet.NewRegistry(),
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		if cfg.LogLevel != "" {
			c.log = logger.NewZapLogger(cfg.LogLevel)
		} else {
			c.log = logger.NoopLogger{}
		}
	}
	if c.rec == nil {
		c.rec = metrics.NoopRecorder{}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.prices == nil {
		c.prices = oracle.New(oracle.NewCoinGeckoClient(c.coinGeckoKey, c.http), oracle.DefaultTTL, c.log)
	}

	c.backend = verification.NewClient(cfg.APIKey, cfg.BusinessID, c.http, c.log)
	c.orch = orchestrator.New(c.wallets, c.prices, c.dial, c.log, c.rec)
	return c, nil
}

// DetectWallets scans the registered wallet providers in the product's fixed
// order.
func (c *Client) DetectWallets() wallet.Detection {
	return c.wallets.Detect()
}

// Pay runs a direct on-chain payment. preferred names the wallet to use; when
// empty and several are installed, an error with code
// WALLET_SELECTION_REQUIRED lists the candidates so the caller can re-invoke
// with a choice.
func (c *Client) Pay(ctx context.Context, req types.PaymentRequest, preferred types.WalletName) (*types.PaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.orch.Pay(ctx, req, preferred)
}

// NewCheckoutSession builds a popup checkout session backed by this client's
// verification service. Start it with the embedder's window opener.
func (c *Client) NewCheckoutSession(cfg checkout.Config) *checkout.Session {
	if cfg.Origin == "" {
		cfg.Origin = c.cfg.CheckoutOrigin
	}
	return checkout.NewSession(cfg, c.backend, c.log)
}

// VerifyPayment confirms a reported payment against the backend.
func (c *Client) VerifyPayment(ctx context.Context, pt types.PaymentType, paymentID, walletAddress string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.VerifyPayment(ctx, pt, paymentID, walletAddress)
}

// SavePayment persists a completed payment.
func (c *Client) SavePayment(ctx context.Context, opts types.SavePaymentOptions) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.SavePayment(ctx, opts)
}

// FetchPayment retrieves a stored payment document by id.
func (c *Client) FetchPayment(ctx context.Context, pt types.PaymentType, paymentID string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.FetchPayment(ctx, pt, paymentID)
}

// OnRampData requests a fiat onramp link.
func (c *Client) OnRampData(ctx context.Context, params verification.OnRampParams) (*types.OnRampData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.OnRampData(ctx, params)
}

// OnRampPaymentStatus polls the settlement status of an onramp payment.
func (c *Client) OnRampPaymentStatus(ctx context.Context, params verification.OnRampStatusParams) (*types.OnRampStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.OnRampPaymentStatus(ctx, params)
}
