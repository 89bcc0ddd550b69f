package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/mileston/pay-go/types"
)

// EncodeApprove builds the calldata for erc20.approve(spender, amount). The
// approval is always sized to the exact payment amount, never unlimited.
func EncodeApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}

// EncodeAllowance builds the calldata for erc20.allowance(owner, spender).
func EncodeAllowance(owner, spender common.Address) ([]byte, error) {
	data, err := erc20.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	return data, nil
}

// DecodeAllowance unpacks the uint256 returned by erc20.allowance.
func DecodeAllowance(ret []byte) (*big.Int, error) {
	out, err := erc20.Unpack("allowance", ret)
	if err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance return type %T", out[0])
	}
	return allowance, nil
}

// EncodeTransfer builds the calldata for erc20.transfer(to, amount).
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("pack transfer: %w", err)
	}
	return data, nil
}

// EncodePay builds the calldata for EfficientPay.pay. For native payments the
// amount additionally rides as the transaction value; tokenIn stays the zero
// address. minAmountOut is fixed at zero and slippage is enforced off-chain.
func EncodePay(merchant common.Address, amount types.TokenAmount) ([]byte, error) {
	data, err := efficientPay.Pack("pay", merchant, amount.Address, amount.BaseUnits, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("pack pay: %w", err)
	}
	return data, nil
}

// paymentProcessed mirrors the non-indexed fields of the PaymentProcessed
// event.
type paymentProcessed struct {
	AmountIn   *big.Int
	AmountUSDC *big.Int
	Fee        *big.Int
	TxHash     [32]byte
}

// DecodePaymentProcessed scans receipt logs for the PaymentProcessed event
// emitted by the payment contract and returns its txHash identifier as a hex
// string. ok is false when the receipt carries no decodable event; callers
// fall back to the chain transaction hash.
func DecodePaymentProcessed(receipt *gethtypes.Receipt, contract common.Address) (string, bool) {
	eventID := efficientPay.Events["PaymentProcessed"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != contract || len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}
		var ev paymentProcessed
		if err := efficientPay.UnpackIntoInterface(&ev, "PaymentProcessed", lg.Data); err != nil {
			continue
		}
		return common.Hash(ev.TxHash).Hex(), true
	}
	return "", false
}
