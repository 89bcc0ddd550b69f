package orchestrator

import (
	"errors"
	"strings"

	"github.com/mileston/pay-go/types"
)

// chainMismatchMarkers are the substrings wallets emit when a transaction is
// signed against the wrong chain. Matching any of them triggers one chain
// switch followed by a full replay of the payment.
var chainMismatchMarkers = []string{
	"wrong chain",
	"unsupported chain",
	"wallet_addethereumchain",
	"chain",
	"network",
}

func isChainMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range chainMismatchMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classifySubmitError maps a raw wallet or RPC error onto the stable error
// taxonomy. Already-classified PayErrors pass through unchanged.
func classifySubmitError(err error, fallbackCode, fallbackMsg string) error {
	var pe *types.PayError
	if errors.As(err, &pe) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return types.NewPayError(types.CodeInsufficientFunds, "insufficient funds for payment", err)
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "denied"):
		return types.NewPayError(types.CodeUserRejected, "transaction was rejected in the wallet", err)
	case isChainMismatch(err):
		return types.NewPayError(types.CodeWrongNetwork, "wallet is on the wrong chain", err)
	}
	return types.NewPayError(fallbackCode, fallbackMsg, err)
}
