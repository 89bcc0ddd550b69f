// Package types defines the shared data model for the Mileston pay SDK:
// payment requests and results, prepared transactions, wallet descriptors,
// and the structured error taxonomy.
package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Environment selects between the test and production deployments of the
// checkout backend and on-chain contracts.
type Environment string

const (
	EnvTest Environment = "test"
	EnvProd Environment = "prod"
)

// Valid reports whether the environment is one of the two known values.
func (e Environment) Valid() bool {
	return e == EnvTest || e == EnvProd
}

// PaymentType identifies which checkout product a payment belongs to.
type PaymentType string

const (
	PaymentTypeInvoice     PaymentType = "invoice"
	PaymentTypePaymentLink PaymentType = "payment-link"
	PaymentTypeRecurring   PaymentType = "recurring"
)

// PaymentRequest describes a single payment to orchestrate. It is created by
// the embedder and consumed once; the orchestrator never mutates it.
type PaymentRequest struct {
	Env              Environment `json:"env" validate:"required,oneof=test prod"`
	Chain            Chain       `json:"chain" validate:"required"`
	RecipientAddress string      `json:"recipientAddress" validate:"required"`
	// AmountUSD is a decimal string; it must parse to a finite positive number.
	AmountUSD string `json:"amountUSD" validate:"required"`
	Token     Token  `json:"token" validate:"required"`
}

// PaymentResult is the terminal value of a successful orchestration.
type PaymentResult struct {
	// ContractTxHash is the application-level identifier emitted by the
	// EfficientPay contract's PaymentProcessed event. When the event cannot
	// be decoded from the receipt it falls back to ChainTxHash.
	ContractTxHash string `json:"contractTxHash"`

	// ChainTxHash is the blockchain transaction hash of the payment.
	ChainTxHash string `json:"chainTxHash"`

	// PayerAddress is the connected wallet address that signed the payment.
	PayerAddress string `json:"payerAddress"`
}

// TokenAmount is a resolved token address with an amount in base units.
// The address is the zero address for native tokens.
type TokenAmount struct {
	Address   common.Address
	BaseUnits *big.Int
}

// IsNative reports whether the amount refers to a chain's native token.
func (a TokenAmount) IsNative() bool {
	return a.Address == (common.Address{})
}

// FeeParams carries either an EIP-1559 fee tuple or a legacy gas price,
// never both.
type FeeParams struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasPrice             *big.Int
}

// PreparedCall is a fully-specified contract call ready for submission.
// Approval and payment are two separate PreparedCalls; one is never reused.
type PreparedCall struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
	Fees  FeeParams
}

// WalletName identifies a known browser wallet in the fixed detection order.
type WalletName string

const (
	WalletMetaMask      WalletName = "MetaMask"
	WalletCore          WalletName = "Core Wallet"
	WalletWalletConnect WalletName = "WalletConnect"
	WalletCoinbase      WalletName = "Coinbase Wallet"
	WalletTrust         WalletName = "Trust Wallet"
	WalletRainbow       WalletName = "Rainbow"
	WalletPhantom       WalletName = "Phantom"
	WalletBrave         WalletName = "Brave Wallet"
	WalletOKX           WalletName = "OKX Wallet"
	WalletRabby         WalletName = "Rabby Wallet"
	WalletTokenPocket   WalletName = "TokenPocket"
	WalletBitget        WalletName = "Bitget Wallet"
	WalletBybit         WalletName = "Bybit Wallet"
	WalletGate          WalletName = "Gate Wallet"
	WalletHuobi         WalletName = "Huobi Wallet"
	WalletBinance       WalletName = "Binance Wallet"
)

// SavePaymentOptions carries everything needed to persist a completed payment
// against the checkout backend.
type SavePaymentOptions struct {
	APIKey       string      `json:"-" validate:"required"`
	BusinessID   string      `json:"-" validate:"required"`
	Type         PaymentType `json:"-" validate:"required"`
	NativeTokens string      `json:"-"`

	PayerAddress     string      `json:"payerAddress"`
	RecipientAddress string      `json:"recipientAddress"`
	AmountUSD        string      `json:"amount"`
	Chain            Chain       `json:"chain"`
	ContractTxHash   string      `json:"txHash"`
	ChainTxHash      string      `json:"feeHash,omitempty"`
	Env              Environment `json:"env"`
}

// ClientConfig is the top-level SDK configuration.
type ClientConfig struct {
	// APIKey and BusinessID authenticate backend calls (save, fetch, onramp).
	APIKey     string `validate:"required"`
	BusinessID string `validate:"required"`

	// DefaultTimeout bounds each network operation. Zero means 30s.
	DefaultTimeout time.Duration

	// CheckoutOrigin overrides the hosted checkout origin. Empty means the
	// production host.
	CheckoutOrigin string

	LogLevel string
}

// OnRampData is the response of the onramp-data endpoint.
type OnRampData struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Link       string `json:"link"`
	ID         string `json:"id"`
}

// OnRampStatus is the response of the onramp-payment-status endpoint.
type OnRampStatus struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

func (r *PaymentRequest) String() string {
	return fmt.Sprintf("%s %s on %s/%s to %s", r.AmountUSD, r.Token, r.Chain, r.Env, r.RecipientAddress)
}
