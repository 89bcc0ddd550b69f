package txbuilder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mileston/pay-go/registry"
	"github.com/mileston/pay-go/types"
)

// PriceSource yields a cached spot price in USD for a token symbol.
type PriceSource interface {
	PriceUSD(ctx context.Context, symbol string) (float64, bool)
}

// ResolveAmount converts a USD amount string into base units of the payment
// token. Stablecoins convert 1:1 at six decimals; native tokens divide by the
// oracle price at eighteen decimals and carry the zero address.
func ResolveAmount(ctx context.Context, env types.Environment, chain types.Chain, token types.Token, amountUSD string, prices PriceSource) (types.TokenAmount, error) {
	amount, err := decimal.NewFromString(amountUSD)
	if err != nil || !amount.IsPositive() {
		return types.TokenAmount{}, types.NewPayError(types.CodeMissingParameters,
			fmt.Sprintf("amount %q is not a positive decimal", amountUSD), err)
	}

	if token.IsStablecoin() {
		addr, err := registry.StablecoinAddress(env, chain, token)
		if err != nil {
			return types.TokenAmount{}, err
		}
		units := amount.Shift(types.StablecoinDecimals).Round(0).BigInt()
		return types.TokenAmount{Address: addr, BaseUnits: units}, nil
	}

	desc, err := registry.ChainFor(env, chain)
	if err != nil {
		return types.TokenAmount{}, err
	}
	if token != desc.NativeToken {
		return types.TokenAmount{}, types.NewPayError(types.CodeUnsupportedToken,
			fmt.Sprintf("%s is not the native token of %s", token, chain), nil)
	}

	price, ok := prices.PriceUSD(ctx, token.String())
	if !ok || price <= 0 {
		return types.TokenAmount{}, types.NewPayError(types.CodePriceUnavailable,
			fmt.Sprintf("no USD price available for %s", token), nil)
	}

	units := amount.Div(decimal.NewFromFloat(price)).Shift(types.NativeDecimals).Round(0).BigInt()
	return types.TokenAmount{BaseUnits: units}, nil
}
