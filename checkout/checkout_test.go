package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mileston/pay-go/types"
)

type fakeWindow struct {
	closed atomic.Bool
}

func (f *fakeWindow) Closed() bool { return f.closed.Load() }
func (f *fakeWindow) Close()       { f.closed.Store(true) }

type fakeVerifier struct {
	ok  bool
	err error

	calls     atomic.Int32
	gotType   types.PaymentType
	gotID     string
	gotWallet string
}

func (f *fakeVerifier) VerifyPayment(_ context.Context, pt types.PaymentType, id, wallet string) (bool, error) {
	f.calls.Add(1)
	f.gotType, f.gotID, f.gotWallet = pt, id, wallet
	return f.ok, f.err
}

func opener(win *fakeWindow) Opener {
	return func(rawURL string, width, height int) (Window, error) {
		if width != PopupWidth || height != PopupHeight {
			return nil, errors.New("unexpected popup geometry")
		}
		return win, nil
	}
}

func waitOutcome(t *testing.T, s *Session) Outcome {
	t.Helper()
	select {
	case out := <-s.Done():
		return out
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finish")
		return Outcome{}
	}
}

func TestConfigURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit payment url", Config{PaymentURL: "https://example.com/pay/abc"}, "https://example.com/pay/abc"},
		{"hosted page for type", Config{PaymentType: types.PaymentTypePaymentLink}, DefaultOrigin + "/payment-link"},
		{"custom origin", Config{Origin: "https://staging.example", PaymentType: types.PaymentTypeInvoice}, "https://staging.example/invoice"},
		{"demo fallback", Config{}, DemoURL},
	}
	for _, tc := range tests {
		if got := tc.cfg.URL(); got != tc.want {
			t.Errorf("%s: URL = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestMessageUnmarshalPaymentIDKeys(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"walletAddress":"0xabc","id":"pay_123"}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.PaymentID != "pay_123" {
		t.Errorf("PaymentID = %q, want id-keyed pay_123", m.PaymentID)
	}
	if m.WalletAddress != "0xabc" {
		t.Errorf("WalletAddress = %q, want 0xabc", m.WalletAddress)
	}

	// paymentId wins when both keys are present.
	if err := json.Unmarshal([]byte(`{"walletAddress":"0xabc","paymentId":"pay_456","id":"pay_123"}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.PaymentID != "pay_456" {
		t.Errorf("PaymentID = %q, want pay_456", m.PaymentID)
	}
}

func TestSessionVerifiesCompletePayload(t *testing.T) {
	win := &fakeWindow{}
	verifier := &fakeVerifier{ok: true}
	s := NewSession(Config{PaymentType: types.PaymentTypeInvoice}, verifier, nil)

	if err := s.Start(context.Background(), opener(win)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Foreign origin and incomplete payloads are both dropped silently.
	s.Deliver(Message{Origin: "https://evil.example", WalletAddress: "0xabc", PaymentID: "inv_1"})
	s.Deliver(Message{Origin: DefaultOrigin, WalletAddress: "0xabc"})
	s.Deliver(Message{Origin: DefaultOrigin, WalletAddress: "0xabc", PaymentID: "inv_1"})

	out := waitOutcome(t, s)
	if !out.Verified || out.Abandoned {
		t.Errorf("outcome = %+v, want verified", out)
	}
	if out.WalletAddress != "0xabc" || out.PaymentID != "inv_1" {
		t.Errorf("outcome payload = %+v", out)
	}
	if got := verifier.calls.Load(); got != 1 {
		t.Errorf("verifier called %d times, want 1", got)
	}
	if verifier.gotType != types.PaymentTypeInvoice || verifier.gotID != "inv_1" || verifier.gotWallet != "0xabc" {
		t.Errorf("verifier saw (%s, %s, %s)", verifier.gotType, verifier.gotID, verifier.gotWallet)
	}
	if !win.Closed() {
		t.Error("popup should be closed after completion")
	}
	if s.State() != StateDone {
		t.Errorf("state = %s, want done", s.State())
	}
}

func TestSessionAbandonedOnClose(t *testing.T) {
	win := &fakeWindow{}
	verifier := &fakeVerifier{ok: true}
	s := NewSession(Config{PaymentType: types.PaymentTypeInvoice}, verifier, nil)

	if err := s.Start(context.Background(), opener(win)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	win.Close()

	out := waitOutcome(t, s)
	if !out.Abandoned || out.Verified {
		t.Errorf("outcome = %+v, want abandoned", out)
	}
	if got := verifier.calls.Load(); got != 0 {
		t.Errorf("verifier called %d times on abandonment, want 0", got)
	}
	if s.State() != StateAbandoned {
		t.Errorf("state = %s, want abandoned", s.State())
	}
}

func TestSessionVerificationFailure(t *testing.T) {
	win := &fakeWindow{}
	verifier := &fakeVerifier{ok: false}
	s := NewSession(Config{PaymentType: types.PaymentTypeRecurring}, verifier, nil)

	if err := s.Start(context.Background(), opener(win)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Deliver(Message{Origin: DefaultOrigin, WalletAddress: "0xabc", PaymentID: "rec_1"})

	out := waitOutcome(t, s)
	if out.Verified || out.Abandoned {
		t.Errorf("outcome = %+v, want unverified completion", out)
	}
}

func TestSessionStartTwice(t *testing.T) {
	win := &fakeWindow{}
	s := NewSession(Config{}, &fakeVerifier{}, nil)

	if err := s.Start(context.Background(), opener(win)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background(), opener(win)); err == nil {
		t.Error("second Start should fail")
	}
	s.Close()
}

func TestSessionContextCancel(t *testing.T) {
	win := &fakeWindow{}
	s := NewSession(Config{}, &fakeVerifier{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, opener(win)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	out := waitOutcome(t, s)
	if !out.Abandoned {
		t.Errorf("outcome = %+v, want abandoned on cancel", out)
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", out.Err)
	}
}
