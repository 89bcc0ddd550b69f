// Package gas prices payment transactions. All supported chains use EIP-1559
// fees with a fixed priority tip; on Ethereum mainnet the fee cap additionally
// targets a flat USD spend per transaction so checkout costs stay predictable.
package gas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/mileston/pay-go/logger"
	"github.com/mileston/pay-go/registry"
	"github.com/mileston/pay-go/types"
)

const (
	// PriorityFeeWei is the fixed tip for every EIP-1559 transaction: 1.5 gwei.
	PriorityFeeWei = 1_500_000_000

	// TargetFeeUSD is the per-transaction fee target applied on Ethereum.
	TargetFeeUSD = 0.60
)

// Backend reads current fee data from a chain.
type Backend interface {
	LatestBaseFee(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// PriceSource yields a cached spot price in USD for a token symbol.
type PriceSource interface {
	PriceUSD(ctx context.Context, symbol string) (float64, bool)
}

type Pricer struct {
	backend Backend
	prices  PriceSource
	log     logger.Logger
}

func New(backend Backend, prices PriceSource, log logger.Logger) *Pricer {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Pricer{backend: backend, prices: prices, log: log}
}

// Fees computes the fee parameters for a transaction with the given gas
// estimate. Chains without a base fee fall back to a legacy gas price.
func (p *Pricer) Fees(ctx context.Context, chain types.Chain, desc registry.ChainDescriptor, gasEstimate uint64) (types.FeeParams, error) {
	if !desc.SupportsEIP1559 {
		gasPrice, err := p.backend.SuggestGasPrice(ctx)
		if err != nil {
			return types.FeeParams{}, fmt.Errorf("suggest gas price: %w", err)
		}
		return types.FeeParams{GasPrice: gasPrice}, nil
	}

	priority := big.NewInt(PriorityFeeWei)

	if chain == types.ChainEthereum {
		if custom, ok := p.usdTargetPrice(ctx, gasEstimate); ok {
			// The tip stays pinned at 1.5 gwei; only the cap tracks the USD
			// target. The cap can never sit below the tip.
			if custom.Cmp(priority) < 0 {
				custom = new(big.Int).Set(priority)
			}
			return types.FeeParams{MaxFeePerGas: custom, MaxPriorityFeePerGas: priority}, nil
		}
		p.log.Warn("usd fee target unavailable, using base fee", map[string]any{"chain": chain})
	}

	baseFee, err := p.backend.LatestBaseFee(ctx)
	if err != nil {
		return types.FeeParams{}, fmt.Errorf("latest base fee: %w", err)
	}
	maxFee := new(big.Int).Add(baseFee, priority)
	return types.FeeParams{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: priority}, nil
}

// usdTargetPrice converts the flat USD fee target into a per-gas wei price:
// TargetFeeUSD / (gasEstimate * ethPriceUSD), shifted to wei.
func (p *Pricer) usdTargetPrice(ctx context.Context, gasEstimate uint64) (*big.Int, bool) {
	if gasEstimate == 0 {
		return nil, false
	}
	ethPrice, ok := p.prices.PriceUSD(ctx, types.TokenETH.String())
	if !ok || ethPrice <= 0 {
		return nil, false
	}

	denom := decimal.NewFromBigInt(new(big.Int).SetUint64(gasEstimate), 0).Mul(decimal.NewFromFloat(ethPrice))
	wei := decimal.NewFromFloat(TargetFeeUSD).Div(denom).Shift(types.NativeDecimals).Round(0).BigInt()
	if wei.Sign() <= 0 {
		return nil, false
	}
	return wei, true
}
