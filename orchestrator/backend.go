package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainBackend is the read side of a chain: contract calls, gas data, and
// receipt confirmation. Transactions are signed and submitted by the wallet
// provider, never by the backend.
type ChainBackend interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error)
	LatestBaseFee(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	Close()
}

// BackendDialer opens a ChainBackend for an RPC endpoint. The default dialer
// uses ethclient; tests inject fakes.
type BackendDialer func(ctx context.Context, rpcURL string) (ChainBackend, error)

// receiptPollInterval is how often a pending transaction is re-checked.
const receiptPollInterval = 2 * time.Second

type evmBackend struct {
	eth *ethclient.Client
}

// DialEVM connects to an EVM JSON-RPC endpoint.
func DialEVM(ctx context.Context, rpcURL string) (ChainBackend, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum rpc dial: %w", err)
	}
	return &evmBackend{eth: eth}, nil
}

func (b *evmBackend) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return b.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (b *evmBackend) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	return b.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
}

func (b *evmBackend) LatestBaseFee(ctx context.Context) (*big.Int, error) {
	header, err := b.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	if header.BaseFee == nil {
		return nil, errors.New("chain has no base fee")
	}
	return header.BaseFee, nil
}

func (b *evmBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return b.eth.SuggestGasPrice(ctx)
}

func (b *evmBackend) WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := b.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *evmBackend) Close() {
	b.eth.Close()
}
