package types

// Chain identifies a supported EVM chain by the short symbol used across the
// checkout product. The test/prod split is carried separately by Environment.
type Chain string

const (
	ChainAvalanche Chain = "avax"
	ChainBase      Chain = "base"
	ChainPolygon   Chain = "pol"
	ChainArbitrum  Chain = "arb"
	ChainEthereum  Chain = "eth"
)

// Chains lists every supported chain symbol in a fixed order.
var Chains = []Chain{ChainAvalanche, ChainBase, ChainPolygon, ChainArbitrum, ChainEthereum}

// Valid reports whether the chain symbol is one of the supported five.
func (c Chain) Valid() bool {
	switch c {
	case ChainAvalanche, ChainBase, ChainPolygon, ChainArbitrum, ChainEthereum:
		return true
	}
	return false
}

func (c Chain) String() string {
	return string(c)
}

// Token is a payment token symbol. Stablecoins settle in their own contract
// units; native tokens are priced in USD through the oracle.
type Token string

const (
	TokenUSDC Token = "USDC"
	TokenUSDT Token = "USDT"
	TokenAVAX Token = "AVAX"
	TokenPOL  Token = "POL"
	TokenETH  Token = "ETH"
)

// IsStablecoin reports whether the token settles at a fixed 6 decimals.
func (t Token) IsStablecoin() bool {
	return t == TokenUSDC || t == TokenUSDT
}

// IsNative reports whether the token is a chain's gas token.
func (t Token) IsNative() bool {
	return t == TokenAVAX || t == TokenPOL || t == TokenETH
}

func (t Token) String() string {
	return string(t)
}

// StablecoinDecimals is the fixed precision of supported stablecoins.
const StablecoinDecimals = 6

// NativeDecimals is the precision of native EVM tokens.
const NativeDecimals = 18
