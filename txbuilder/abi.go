// Package txbuilder encodes and decodes the two contract calls a payment
// needs: the ERC-20 approval and the EfficientPay settlement, plus the
// PaymentProcessed event emitted on success. It also converts USD amounts
// into token base units.
package txbuilder

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABI = `[
	{
		"inputs":[
			{"name":"spender","type":"address"},
			{"name":"amount","type":"uint256"}
		],
		"name":"approve",
		"outputs":[{"name":"","type":"bool"}],
		"stateMutability":"nonpayable",
		"type":"function"
	},
	{
		"inputs":[
			{"name":"owner","type":"address"},
			{"name":"spender","type":"address"}
		],
		"name":"allowance",
		"outputs":[{"name":"","type":"uint256"}],
		"stateMutability":"view",
		"type":"function"
	},
	{
		"inputs":[
			{"name":"to","type":"address"},
			{"name":"amount","type":"uint256"}
		],
		"name":"transfer",
		"outputs":[{"name":"","type":"bool"}],
		"stateMutability":"nonpayable",
		"type":"function"
	},
	{
		"inputs":[{"name":"account","type":"address"}],
		"name":"balanceOf",
		"outputs":[{"name":"","type":"uint256"}],
		"stateMutability":"view",
		"type":"function"
	}
]`

const efficientPayABI = `[
	{
		"inputs":[
			{"name":"merchant","type":"address"},
			{"name":"tokenIn","type":"address"},
			{"name":"amountIn","type":"uint256"},
			{"name":"minAmountOut","type":"uint256"}
		],
		"name":"pay",
		"outputs":[{"name":"","type":"bytes32"}],
		"stateMutability":"payable",
		"type":"function"
	},
	{
		"anonymous":false,
		"inputs":[
			{"indexed":true,"name":"payer","type":"address"},
			{"indexed":true,"name":"merchant","type":"address"},
			{"indexed":true,"name":"tokenIn","type":"address"},
			{"indexed":false,"name":"amountIn","type":"uint256"},
			{"indexed":false,"name":"amountUSDC","type":"uint256"},
			{"indexed":false,"name":"fee","type":"uint256"},
			{"indexed":false,"name":"txHash","type":"bytes32"}
		],
		"name":"PaymentProcessed",
		"type":"event"
	}
]`

var (
	erc20        abi.ABI
	efficientPay abi.ABI
)

func init() {
	erc20 = mustParseABI(erc20ABI)
	efficientPay = mustParseABI(efficientPayABI)
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("txbuilder: invalid ABI: " + err.Error())
	}
	return parsed
}
