// Package registry holds the static chain, token, and contract lookup tables
// for every supported (environment, chain) pair. The tables are pure data;
// a missing combination is a configuration error surfaced at call time.
package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mileston/pay-go/types"
)

// ChainDescriptor is the immutable metadata for one chain deployment.
type ChainDescriptor struct {
	// ChainID is the EIP-155 chain identifier.
	ChainID int64

	// Name is the human-readable chain name.
	Name string

	// RPCURL is the default public RPC endpoint.
	RPCURL string

	// NativeToken is the gas token symbol for the chain.
	NativeToken types.Token

	// SupportsEIP1559 reports whether blocks carry a base fee.
	SupportsEIP1559 bool
}

type envPair struct {
	env   types.Environment
	chain types.Chain
}

// Chain descriptors for the fixed five-chain enum, test and prod.
// Chain IDs and endpoints follow the public deployments.
var chainTable = map[envPair]ChainDescriptor{
	{types.EnvProd, types.ChainAvalanche}: {ChainID: 43114, Name: "Avalanche", RPCURL: "https://api.avax.network/ext/bc/C/rpc", NativeToken: types.TokenAVAX, SupportsEIP1559: true},
	{types.EnvTest, types.ChainAvalanche}: {ChainID: 43113, Name: "Avalanche Fuji", RPCURL: "https://api.avax-test.network/ext/bc/C/rpc", NativeToken: types.TokenAVAX, SupportsEIP1559: true},
	{types.EnvProd, types.ChainBase}:      {ChainID: 8453, Name: "Base", RPCURL: "https://mainnet.base.org", NativeToken: types.TokenETH, SupportsEIP1559: true},
	{types.EnvTest, types.ChainBase}:      {ChainID: 84532, Name: "Base Sepolia", RPCURL: "https://sepolia.base.org", NativeToken: types.TokenETH, SupportsEIP1559: true},
	{types.EnvProd, types.ChainPolygon}:   {ChainID: 137, Name: "Polygon", RPCURL: "https://polygon-rpc.com", NativeToken: types.TokenPOL, SupportsEIP1559: true},
	{types.EnvTest, types.ChainPolygon}:   {ChainID: 80002, Name: "Polygon Amoy", RPCURL: "https://rpc-amoy.polygon.technology", NativeToken: types.TokenPOL, SupportsEIP1559: true},
	{types.EnvProd, types.ChainArbitrum}:  {ChainID: 42161, Name: "Arbitrum One", RPCURL: "https://arb1.arbitrum.io/rpc", NativeToken: types.TokenETH, SupportsEIP1559: true},
	{types.EnvTest, types.ChainArbitrum}:  {ChainID: 421614, Name: "Arbitrum Sepolia", RPCURL: "https://sepolia-rollup.arbitrum.io/rpc", NativeToken: types.TokenETH, SupportsEIP1559: true},
	{types.EnvProd, types.ChainEthereum}:  {ChainID: 1, Name: "Ethereum", RPCURL: "https://eth.merkle.io", NativeToken: types.TokenETH, SupportsEIP1559: true},
	{types.EnvTest, types.ChainEthereum}:  {ChainID: 11155111, Name: "Sepolia", RPCURL: "https://sepolia.drpc.org", NativeToken: types.TokenETH, SupportsEIP1559: true},
}

// Circle USDC deployments per (env, chain).
var usdcTable = map[envPair]string{
	{types.EnvProd, types.ChainAvalanche}: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
	{types.EnvTest, types.ChainAvalanche}: "0x5425890298aed601595a70AB815c96711a31Bc65",
	{types.EnvProd, types.ChainBase}:      "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	{types.EnvTest, types.ChainBase}:      "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	{types.EnvProd, types.ChainPolygon}:   "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
	{types.EnvTest, types.ChainPolygon}:   "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
	{types.EnvProd, types.ChainArbitrum}:  "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
	{types.EnvTest, types.ChainArbitrum}:  "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d",
	{types.EnvProd, types.ChainEthereum}:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	{types.EnvTest, types.ChainEthereum}:  "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
}

// USDT only has prod deployments on Avalanche and Ethereum.
var usdtTable = map[envPair]string{
	{types.EnvProd, types.ChainAvalanche}: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7",
	{types.EnvProd, types.ChainEthereum}:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
}

// EfficientPay proxy deployments per (env, chain).
var paymentContractTable = map[envPair]string{
	{types.EnvProd, types.ChainAvalanche}: "0xEcb82f0Cb252682cE13e6a2FBB6dB9711a5B05A2",
	{types.EnvTest, types.ChainAvalanche}: "0x440150ef4A9D89ED6d72F11608550bD035a8CEE7",
	{types.EnvProd, types.ChainBase}:      "0xcC2541B7A5d7FC65a43Af221933C298c45Dcc12c",
	{types.EnvTest, types.ChainBase}:      "0x70f1D3693d5B8F066acE537132Cbc61201bb6396",
	{types.EnvProd, types.ChainPolygon}:   "0xdDeC3AfFd91d6639f6F0c903a195019cdF23B1eD",
	{types.EnvTest, types.ChainPolygon}:   "0x209097757c380b192460f45a31f55c159dC8Ab8C",
	{types.EnvProd, types.ChainArbitrum}:  "0x2A111508724bb4dBC4093796a9Cf0c67507f6ABC",
	{types.EnvTest, types.ChainArbitrum}:  "0xd8aC2a3D797aCbFd2BA3f3873c07A6B368eAF007",
	{types.EnvProd, types.ChainEthereum}:  "0x411CD8A16C24c6c450B2F502FAEf63B4D70fB1a9",
	{types.EnvTest, types.ChainEthereum}:  "0xA8fED2dD2DBFd9d03047462d1f8f669c1687c296",
}

// ChainFor returns the descriptor for a supported (env, chain) pair.
func ChainFor(env types.Environment, chain types.Chain) (ChainDescriptor, error) {
	desc, ok := chainTable[envPair{env, chain}]
	if !ok {
		return ChainDescriptor{}, types.NewPayError(types.CodeUnsupportedChain,
			fmt.Sprintf("chain %q is not supported in %q environment", chain, env), nil)
	}
	return desc, nil
}

// StablecoinAddress resolves the contract address of a stablecoin on a chain.
func StablecoinAddress(env types.Environment, chain types.Chain, token types.Token) (common.Address, error) {
	var table map[envPair]string
	switch token {
	case types.TokenUSDC:
		table = usdcTable
	case types.TokenUSDT:
		table = usdtTable
	default:
		return common.Address{}, types.NewPayError(types.CodeUnsupportedToken,
			fmt.Sprintf("%q is not a supported stablecoin", token), nil)
	}

	addr, ok := table[envPair{env, chain}]
	if !ok {
		return common.Address{}, types.NewPayError(types.CodeUnsupportedToken,
			fmt.Sprintf("%s is not supported on %s chain in %s environment", token, chain, env), nil)
	}
	return common.HexToAddress(addr), nil
}

// PaymentContractAddress resolves the EfficientPay proxy address on a chain.
func PaymentContractAddress(env types.Environment, chain types.Chain) (common.Address, error) {
	addr, ok := paymentContractTable[envPair{env, chain}]
	if !ok {
		return common.Address{}, types.NewPayError(types.CodeUnsupportedChain,
			fmt.Sprintf("payment contract address not found for chain %q in %q environment", chain, env), nil)
	}
	return common.HexToAddress(addr), nil
}
