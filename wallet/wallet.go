// Package wallet models the embedder's injected wallet providers. The SDK
// never talks to a browser directly; the host passes one Provider per wallet
// it can reach and the resolver applies the product's fixed detection order.
package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mileston/pay-go/types"
)

// Provider is the transport for one wallet, shaped after an EIP-1193
// provider. Implementations wrap whatever bridge the embedder has to the
// actual wallet (browser extension relay, WalletConnect session, test fake).
type Provider interface {
	Name() types.WalletName

	// Available reports whether the wallet is installed and reachable.
	Available() bool

	// Connected reports whether the wallet has already authorized the
	// embedder, meaning RequestAccounts will not prompt.
	Connected() bool

	// RequestAccounts prompts the user to connect and returns the authorized
	// accounts. An empty slice means the user dismissed the prompt.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// ChainID returns the chain the wallet is currently on.
	ChainID(ctx context.Context) (int64, error)

	// SwitchChain asks the wallet to move to the given chain, adding it first
	// if the wallet does not know it.
	SwitchChain(ctx context.Context, chainID int64) error

	// SendTransaction submits a prepared call from the connected account and
	// returns the transaction hash.
	SendTransaction(ctx context.Context, from common.Address, call types.PreparedCall) (common.Hash, error)
}

// DetectionOrder is the fixed wallet enumeration order. Detection results and
// first-match resolution always follow this order, never map iteration.
var DetectionOrder = []types.WalletName{
	types.WalletMetaMask,
	types.WalletCore,
	types.WalletWalletConnect,
	types.WalletCoinbase,
	types.WalletTrust,
	types.WalletRainbow,
	types.WalletPhantom,
	types.WalletBrave,
	types.WalletOKX,
	types.WalletRabby,
	types.WalletTokenPocket,
	types.WalletBitget,
	types.WalletBybit,
	types.WalletGate,
	types.WalletHuobi,
	types.WalletBinance,
}

// Descriptor is one row of a detection scan.
type Descriptor struct {
	Name      types.WalletName `json:"name"`
	Installed bool             `json:"installed"`
	Connected bool             `json:"connected"`
}

// Detection is the result of one wallet scan.
type Detection struct {
	// Wallets lists every known wallet in detection order.
	Wallets []Descriptor

	// HasAny reports whether at least one wallet is installed.
	HasAny bool

	// Connected is the first already-connected wallet in detection order,
	// or nil.
	Connected *Descriptor
}

// Registry holds the providers the embedder injected.
type Registry struct {
	providers map[types.WalletName]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[types.WalletName]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Detect scans every known wallet in detection order. Wallets with no
// injected provider report as not installed; the first connected wallet in
// order wins the Connected slot even when several claim to be connected.
func (r *Registry) Detect() Detection {
	det := Detection{Wallets: make([]Descriptor, 0, len(DetectionOrder))}
	for _, name := range DetectionOrder {
		p, ok := r.providers[name]
		d := Descriptor{Name: name}
		if ok && p.Available() {
			d.Installed = true
			d.Connected = p.Connected()
			det.HasAny = true
		}
		det.Wallets = append(det.Wallets, d)
		if d.Connected && det.Connected == nil {
			connected := d
			det.Connected = &connected
		}
	}
	return det
}

// Resolve picks the provider for a payment. A named preference must be
// installed; with no preference, the first already-connected wallet is used,
// and installed-but-unconnected wallets raise the selection sentinel so the
// caller can show a picker.
func (r *Registry) Resolve(preferred types.WalletName) (Provider, error) {
	if preferred != "" {
		p, ok := r.providers[preferred]
		if !ok || !p.Available() {
			return nil, types.NewPayError(types.CodeWalletUnavailable,
				fmt.Sprintf("wallet %q is not installed", preferred), nil)
		}
		return p, nil
	}

	det := r.Detect()
	if !det.HasAny {
		return nil, types.NewPayError(types.CodeNoWalletDetected, "no wallet detected", nil)
	}
	if det.Connected != nil {
		return r.providers[det.Connected.Name], nil
	}

	var names []string
	for _, d := range det.Wallets {
		if d.Installed {
			names = append(names, string(d.Name))
		}
	}
	return nil, types.NewPayError(types.CodeWalletSelectionRequired,
		"no wallet connected, selection required", nil).WithData("wallets", names)
}

// Session is a connected wallet with its first authorized account.
type Session struct {
	Provider Provider
	Address  common.Address
}

// Connect prompts the provider for accounts and pins the first one.
func Connect(ctx context.Context, p Provider) (*Session, error) {
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		if isRejection(err) {
			return nil, types.NewPayError(types.CodeConnectionRejected,
				fmt.Sprintf("connection to %s was rejected", p.Name()), err)
		}
		return nil, types.NewPayError(types.CodeWalletUnavailable,
			fmt.Sprintf("wallet %s did not respond", p.Name()), err)
	}
	if len(accounts) == 0 {
		return nil, types.NewPayError(types.CodeConnectionRejected,
			fmt.Sprintf("connection to %s returned no accounts", p.Name()), nil)
	}
	return &Session{Provider: p, Address: accounts[0]}, nil
}

func isRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") || strings.Contains(msg, "denied")
}
