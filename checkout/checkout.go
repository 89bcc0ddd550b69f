// Package checkout drives a hosted checkout popup session. The SDK owns the
// session state machine; the embedder supplies the window primitive and feeds
// it the cross-window messages it receives.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mileston/pay-go/logger"
	"github.com/mileston/pay-go/types"
)

// DefaultOrigin is the hosted checkout origin. Messages from any other
// origin are dropped without logging their payload.
const DefaultOrigin = "https://checkout.mileston.co"

// DemoURL is the page opened when a session has neither a payment URL nor a
// payment type.
const DemoURL = "https://demo.mileston.co/pay"

// Popup geometry, fixed by the checkout page layout.
const (
	PopupWidth  = 500
	PopupHeight = 500
)

// pollInterval is how often the popup is checked for having been closed.
const pollInterval = 500 * time.Millisecond

// State is the lifecycle position of a checkout session.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateVerifying
	StateDone
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Window is the popup primitive the embedder opens for a session.
type Window interface {
	Closed() bool
	Close()
}

// Opener opens the hosted checkout page in a popup of the given size.
type Opener func(rawURL string, width, height int) (Window, error)

// Message is one cross-window message delivered to the session. Origin must
// match the checkout origin exactly; WalletAddress and PaymentID must both be
// present for the payload to count as complete.
type Message struct {
	Origin        string `json:"-"`
	WalletAddress string `json:"walletAddress"`
	PaymentID     string `json:"paymentId"`
}

// UnmarshalJSON accepts both payload shapes the checkout page emits: the
// payment identifier arrives under "paymentId" or under "id".
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		WalletAddress string `json:"walletAddress"`
		PaymentID     string `json:"paymentId"`
		ID            string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.WalletAddress = raw.WalletAddress
	m.PaymentID = raw.PaymentID
	if m.PaymentID == "" {
		m.PaymentID = raw.ID
	}
	return nil
}

// Verifier confirms a reported payment against the backend before the
// session completes.
type Verifier interface {
	VerifyPayment(ctx context.Context, paymentType types.PaymentType, paymentID, walletAddress string) (bool, error)
}

// Outcome is the terminal result of a session.
type Outcome struct {
	// Verified is true when the backend confirmed the payment.
	Verified bool

	// Abandoned is true when the user closed the popup before completing.
	Abandoned bool

	WalletAddress string
	PaymentID     string
	Err           error
}

// Config describes one checkout session.
type Config struct {
	// Origin overrides the checkout origin. Empty means DefaultOrigin.
	Origin string

	// PaymentURL, when set, is opened verbatim instead of the hosted page.
	PaymentURL string

	PaymentType types.PaymentType
}

// URL picks the page the popup opens: an explicit payment URL, the hosted
// page for the payment type, or the demo page.
func (c Config) URL() string {
	if c.PaymentURL != "" {
		return c.PaymentURL
	}
	origin := c.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	if c.PaymentType != "" {
		return fmt.Sprintf("%s/%s", origin, c.PaymentType)
	}
	return DemoURL
}

// Session is one popup checkout in flight. All exported methods are safe for
// concurrent use.
type Session struct {
	cfg      Config
	origin   string
	verifier Verifier
	log      logger.Logger

	mu    sync.Mutex
	state State
	win   Window

	messages chan Message
	done     chan Outcome
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSession builds an idle session. Start opens the popup.
func NewSession(cfg Config, verifier Verifier, log logger.Logger) *Session {
	origin := cfg.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Session{
		cfg:      cfg,
		origin:   origin,
		verifier: verifier,
		log:      log,
		state:    StateIdle,
		messages: make(chan Message, 8),
		done:     make(chan Outcome, 1),
		stop:     make(chan struct{}),
	}
}

// Start opens the popup and begins listening for messages and for the user
// closing the window.
func (s *Session) Start(ctx context.Context, open Opener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("checkout session already started (state %s)", s.state)
	}

	win, err := open(s.cfg.URL(), PopupWidth, PopupHeight)
	if err != nil {
		return fmt.Errorf("open checkout popup: %w", err)
	}
	s.win = win
	s.state = StateListening
	s.log.Debug("checkout popup opened", map[string]any{"type": s.cfg.PaymentType, "url": s.cfg.URL()})

	go s.run(ctx)
	return nil
}

// Deliver feeds one cross-window message into the session. Messages arriving
// after the session reached a terminal state are discarded.
func (s *Session) Deliver(msg Message) {
	select {
	case s.messages <- msg:
	case <-s.stop:
	}
}

// Done yields the terminal outcome exactly once.
func (s *Session) Done() <-chan Outcome {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the session down without an outcome. Safe to call at any time.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			s.finish(StateAbandoned, Outcome{Abandoned: true, Err: ctx.Err()})
			return
		case <-s.stop:
			s.closeWindow()
			return
		case <-ticker.C:
			if s.win.Closed() {
				// User dismissal: terminal, and no completion callbacks fire.
				s.finish(StateAbandoned, Outcome{Abandoned: true})
				return
			}
		case msg := <-s.messages:
			if !s.accept(msg) {
				continue
			}
			s.setState(StateVerifying)
			verified, err := s.verifier.VerifyPayment(ctx, s.cfg.PaymentType, msg.PaymentID, msg.WalletAddress)
			s.finish(StateDone, Outcome{
				Verified:      verified && err == nil,
				WalletAddress: msg.WalletAddress,
				PaymentID:     msg.PaymentID,
				Err:           err,
			})
			return
		}
	}
}

// accept filters messages: exact origin match and a complete payload.
func (s *Session) accept(msg Message) bool {
	if msg.Origin != s.origin {
		s.log.Debug("checkout message from foreign origin dropped", map[string]any{"origin": msg.Origin})
		return false
	}
	return msg.WalletAddress != "" && msg.PaymentID != ""
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) finish(state State, outcome Outcome) {
	s.setState(state)
	s.closeWindow()
	s.done <- outcome
	s.log.Info("checkout session finished", map[string]any{
		"state": state.String(), "verified": outcome.Verified, "abandoned": outcome.Abandoned,
	})
}

func (s *Session) closeWindow() {
	s.mu.Lock()
	win := s.win
	s.mu.Unlock()
	if win != nil && !win.Closed() {
		win.Close()
	}
}
