// Package verification is the REST client for the checkout backend: payment
// verification, persistence, retrieval, and the fiat onramp endpoints.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mileston/pay-go/logger"
	"github.com/mileston/pay-go/types"
)

// DefaultCheckoutBase is the checkout service backing save, fetch, and
// onramp calls.
const DefaultCheckoutBase = "https://checkout-service.mileston.co"

// defaultVerifyEndpoints are the per-product verification services.
var defaultVerifyEndpoints = map[types.PaymentType]string{
	types.PaymentTypeInvoice:     "https://invoice-service.mileston.co/invoice/verify",
	types.PaymentTypePaymentLink: "https://payment-service.mileston.co/payment-link/verify",
	types.PaymentTypeRecurring:   "https://recurring-service.mileston.co/recurring-payment/verify",
}

var savePatterns = map[types.PaymentType]string{
	types.PaymentTypeInvoice:     "invoice.save",
	types.PaymentTypePaymentLink: "paymentlink.save",
	types.PaymentTypeRecurring:   "recurring.save",
}

var fetchPatterns = map[types.PaymentType]string{
	types.PaymentTypeInvoice:     "invoice.get",
	types.PaymentTypePaymentLink: "paymentlink.get",
	types.PaymentTypeRecurring:   "recurring.get",
}

type Client struct {
	http       *http.Client
	apiKey     string
	businessID string
	log        logger.Logger

	verifyEndpoints map[types.PaymentType]string
	checkoutBase    string
}

func NewClient(apiKey, businessID string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	endpoints := make(map[types.PaymentType]string, len(defaultVerifyEndpoints))
	for pt, ep := range defaultVerifyEndpoints {
		endpoints[pt] = ep
	}
	return &Client{
		http:            httpClient,
		apiKey:          apiKey,
		businessID:      businessID,
		log:             log,
		verifyEndpoints: endpoints,
		checkoutBase:    DefaultCheckoutBase,
	}
}

// SetVerifyEndpoint overrides one verification endpoint, used by tests and
// staging setups.
func (c *Client) SetVerifyEndpoint(pt types.PaymentType, endpoint string) {
	c.verifyEndpoints[pt] = endpoint
}

// SetCheckoutBase overrides the checkout service base URL.
func (c *Client) SetCheckoutBase(base string) {
	c.checkoutBase = base
}

// VerifyPayment confirms that a payment reported by the checkout page really
// settled. false with a nil error means the backend rejected the payment; an
// error means the answer is unknown.
func (c *Client) VerifyPayment(ctx context.Context, pt types.PaymentType, paymentID, walletAddress string) (bool, error) {
	endpoint, ok := c.verifyEndpoints[pt]
	if !ok {
		return false, types.NewPayError(types.CodeMissingParameters,
			fmt.Sprintf("invalid payment type %q", pt), nil)
	}

	// The verification services authenticate by payload, not by API key.
	body := map[string]string{"walletAddress": walletAddress, "id": paymentID}
	resp, err := c.post(ctx, endpoint, body, "", "")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, types.NewPayError(types.CodeProtocolError,
			fmt.Sprintf("payment verification request failed with status %d", resp.StatusCode), nil)
	}

	var out struct {
		Success bool            `json:"success"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, types.NewPayError(types.CodeProtocolError, "verification response was malformed", err)
	}
	switch {
	case out.Success:
		return true, nil
	case rawSet(out.Error):
		c.log.Warn("payment verification rejected", map[string]any{"type": pt, "id": paymentID})
		return false, nil
	}
	return false, types.NewPayError(types.CodeProtocolError,
		"verification endpoint returned neither success nor error", nil)
}

// SavePayment persists a completed payment. NativeTokens, when set, is
// forwarded as a query parameter so the backend records the native amount.
func (c *Client) SavePayment(ctx context.Context, opts types.SavePaymentOptions) error {
	if opts.APIKey == "" {
		opts.APIKey = c.apiKey
	}
	if opts.BusinessID == "" {
		opts.BusinessID = c.businessID
	}
	if opts.APIKey == "" || opts.BusinessID == "" {
		return types.NewPayError(types.CodeMissingParameters, "api key and business id are required", nil)
	}
	pattern, ok := savePatterns[opts.Type]
	if !ok {
		return types.NewPayError(types.CodeMissingParameters,
			fmt.Sprintf("invalid payment type %q", opts.Type), nil)
	}

	endpoint := fmt.Sprintf("%s/save-payment/%s", c.checkoutBase, pattern)
	if opts.NativeTokens != "" {
		endpoint += "?nativeTokens=" + url.QueryEscape(opts.NativeTokens)
	}

	resp, err := c.post(ctx, endpoint, opts, opts.APIKey, opts.BusinessID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewPayError(types.CodeProtocolError,
			fmt.Sprintf("save payment failed: %s", readErrorMessage(resp)), nil)
	}
	c.log.Debug("payment saved", map[string]any{"type": opts.Type, "txHash": opts.ContractTxHash})
	return nil
}

// FetchPayment retrieves a stored payment by id. The payload shape differs
// per payment type, so the raw document is returned.
func (c *Client) FetchPayment(ctx context.Context, pt types.PaymentType, paymentID string) (json.RawMessage, error) {
	pattern, ok := fetchPatterns[pt]
	if !ok {
		return nil, types.NewPayError(types.CodeMissingParameters,
			fmt.Sprintf("invalid payment type %q", pt), nil)
	}

	endpoint := fmt.Sprintf("%s/data/%s/%s", c.checkoutBase, pattern, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "cannot build fetch request", err)
	}
	c.setHeaders(req, c.apiKey, c.businessID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "payment fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewPayError(types.CodeProtocolError,
			fmt.Sprintf("payment fetch failed: %s", readErrorMessage(resp)), nil)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "payment document was malformed", err)
	}
	return raw, nil
}

// OnRampParams requests a fiat onramp link for a recipient.
type OnRampParams struct {
	AmountUSD              string
	RecipientWalletAddress string
	Chain                  types.Chain
}

// OnRampData requests an onramp link from the checkout service.
func (c *Client) OnRampData(ctx context.Context, params OnRampParams) (*types.OnRampData, error) {
	q := url.Values{}
	q.Set("amount", params.AmountUSD)
	q.Set("recipientWalletAddress", params.RecipientWalletAddress)
	q.Set("chain", string(params.Chain))
	endpoint := fmt.Sprintf("%s/checkout/onramp-data?%s", c.checkoutBase, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "cannot build onramp request", err)
	}
	c.setHeaders(req, c.apiKey, c.businessID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "onramp data fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewPayError(types.CodeProtocolError,
			fmt.Sprintf("onramp data fetch failed with status %d", resp.StatusCode), nil)
	}

	var out types.OnRampData
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "onramp response was malformed", err)
	}
	return &out, nil
}

// OnRampStatusParams identifies an in-flight onramp payment.
type OnRampStatusParams struct {
	ID                     string      `json:"-"`
	AmountUSD              string      `json:"amount"`
	Chain                  types.Chain `json:"chain"`
	RecipientWalletAddress string      `json:"recipientWalletAddress"`
	SubWalletUUID          string      `json:"subWalletUuid,omitempty"`
	UserUUID               string      `json:"userUUID,omitempty"`
}

// OnRampPaymentStatus polls the settlement status of an onramp payment.
func (c *Client) OnRampPaymentStatus(ctx context.Context, params OnRampStatusParams) (*types.OnRampStatus, error) {
	endpoint := fmt.Sprintf("%s/checkout/onramp-payment-status/%s", c.checkoutBase, params.ID)
	resp, err := c.post(ctx, endpoint, params, c.apiKey, c.businessID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewPayError(types.CodeProtocolError,
			fmt.Sprintf("onramp status fetch failed with status %d", resp.StatusCode), nil)
	}

	var out types.OnRampStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "onramp status response was malformed", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any, apiKey, businessID string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "cannot encode request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "cannot build request", err)
	}
	c.setHeaders(req, apiKey, businessID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "request failed", err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, apiKey, businessID string) {
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}
	if businessID != "" {
		req.Header.Set("businessid", businessID)
	}
}

// readErrorMessage extracts the backend's message field from an error body.
func readErrorMessage(resp *http.Response) string {
	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Message == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return out.Message
}

// rawSet reports whether a raw JSON field is present and not null or false.
func rawSet(raw json.RawMessage) bool {
	s := string(bytes.TrimSpace(raw))
	return s != "" && s != "null" && s != "false"
}
