package verification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mileston/pay-go/types"
)

func TestVerifyPayment(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     bool
		wantCode string
	}{
		{"success", http.StatusOK, `{"success":true}`, true, ""},
		{"rejected", http.StatusOK, `{"error":"payment not found"}`, false, ""},
		{"ambiguous body", http.StatusOK, `{}`, false, types.CodeProtocolError},
		{"server error", http.StatusInternalServerError, `{}`, false, types.CodeProtocolError},
		{"malformed body", http.StatusOK, `not-json`, false, types.CodeProtocolError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil && tc.name != "malformed body" {
					t.Errorf("decode request: %v", err)
				}
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c := NewClient("key", "biz", srv.Client(), nil)
			c.SetVerifyEndpoint(types.PaymentTypeInvoice, srv.URL)

			got, err := c.VerifyPayment(context.Background(), types.PaymentTypeInvoice, "inv_1", "0xabc")
			if got != tc.want {
				t.Errorf("verified = %v, want %v", got, tc.want)
			}
			if code := types.CodeOf(err); code != tc.wantCode {
				t.Errorf("code = %q, want %q", code, tc.wantCode)
			}
			if err == nil {
				if gotBody["walletAddress"] != "0xabc" || gotBody["id"] != "inv_1" {
					t.Errorf("request body = %v", gotBody)
				}
			}
		})
	}
}

func TestVerifyPaymentInvalidType(t *testing.T) {
	c := NewClient("key", "biz", nil, nil)
	_, err := c.VerifyPayment(context.Background(), "subscription", "id", "0xabc")
	if code := types.CodeOf(err); code != types.CodeMissingParameters {
		t.Errorf("code = %q, want %q", code, types.CodeMissingParameters)
	}
}

func TestSavePayment(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey, gotBusinessID string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")
		gotBusinessID = r.Header.Get("businessid")
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `{"statusCode":201,"message":"saved"}`)
	}))
	defer srv.Close()

	c := NewClient("key", "biz", srv.Client(), nil)
	c.SetCheckoutBase(srv.URL)

	err := c.SavePayment(context.Background(), types.SavePaymentOptions{
		Type:             types.PaymentTypePaymentLink,
		NativeTokens:     "0.0005",
		PayerAddress:     "0xabc",
		RecipientAddress: "0xdef",
		AmountUSD:        "100",
		Chain:            types.ChainBase,
		ContractTxHash:   "0x123",
		Env:              types.EnvProd,
	})
	if err != nil {
		t.Fatalf("SavePayment: %v", err)
	}

	if gotPath != "/save-payment/paymentlink.save" {
		t.Errorf("path = %s, want /save-payment/paymentlink.save", gotPath)
	}
	if gotQuery != "nativeTokens=0.0005" {
		t.Errorf("query = %s, want nativeTokens=0.0005", gotQuery)
	}
	if gotAPIKey != "key" || gotBusinessID != "biz" {
		t.Errorf("auth headers = (%s, %s)", gotAPIKey, gotBusinessID)
	}
	if gotBody["txHash"] != "0x123" || gotBody["amount"] != "100" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestSavePaymentMissingCredentials(t *testing.T) {
	c := NewClient("", "", nil, nil)
	err := c.SavePayment(context.Background(), types.SavePaymentOptions{Type: types.PaymentTypeInvoice})
	if code := types.CodeOf(err); code != types.CodeMissingParameters {
		t.Errorf("code = %q, want %q", code, types.CodeMissingParameters)
	}
}

func TestSavePaymentBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"duplicate payment"}`)
	}))
	defer srv.Close()

	c := NewClient("key", "biz", srv.Client(), nil)
	c.SetCheckoutBase(srv.URL)

	err := c.SavePayment(context.Background(), types.SavePaymentOptions{Type: types.PaymentTypeInvoice})
	if code := types.CodeOf(err); code != types.CodeProtocolError {
		t.Fatalf("code = %q, want %q", code, types.CodeProtocolError)
	}
	if got := err.Error(); got != "save payment failed: duplicate payment" {
		t.Errorf("error = %q", got)
	}
}

func TestFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/invoice.get/inv_1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "key" {
			t.Error("missing apikey header")
		}
		io.WriteString(w, `{"id":"inv_1","amount":"100"}`)
	}))
	defer srv.Close()

	c := NewClient("key", "biz", srv.Client(), nil)
	c.SetCheckoutBase(srv.URL)

	raw, err := c.FetchPayment(context.Background(), types.PaymentTypeInvoice, "inv_1")
	if err != nil {
		t.Fatalf("FetchPayment: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	if doc["id"] != "inv_1" {
		t.Errorf("document = %v", doc)
	}
}

func TestOnRampData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/onramp-data" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("amount") != "50" || q.Get("chain") != "base" || q.Get("recipientWalletAddress") != "0xdef" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"statusCode":200,"message":"ok","link":"https://onramp.example/x","id":"onr_1"}`)
	}))
	defer srv.Close()

	c := NewClient("key", "biz", srv.Client(), nil)
	c.SetCheckoutBase(srv.URL)

	data, err := c.OnRampData(context.Background(), OnRampParams{
		AmountUSD:              "50",
		RecipientWalletAddress: "0xdef",
		Chain:                  types.ChainBase,
	})
	if err != nil {
		t.Fatalf("OnRampData: %v", err)
	}
	if data.Link != "https://onramp.example/x" || data.ID != "onr_1" {
		t.Errorf("data = %+v", data)
	}
}

func TestOnRampPaymentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/onramp-payment-status/onr_1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["amount"] != "50" || body["recipientWalletAddress"] != "0xdef" {
			t.Errorf("body = %v", body)
		}
		io.WriteString(w, `{"statusCode":200,"message":"ok","status":"settled"}`)
	}))
	defer srv.Close()

	c := NewClient("key", "biz", srv.Client(), nil)
	c.SetCheckoutBase(srv.URL)

	status, err := c.OnRampPaymentStatus(context.Background(), OnRampStatusParams{
		ID:                     "onr_1",
		AmountUSD:              "50",
		Chain:                  types.ChainBase,
		RecipientWalletAddress: "0xdef",
	})
	if err != nil {
		t.Fatalf("OnRampPaymentStatus: %v", err)
	}
	if status.Status != "settled" {
		t.Errorf("status = %+v", status)
	}
}
