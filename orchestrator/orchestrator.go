// Package orchestrator runs the on-chain payment state machine: request
// validation, wallet resolution and connection, amount conversion, ERC-20
// approval, fee pricing, submission, and receipt confirmation.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/mileston/pay-go/gas"
	"github.com/mileston/pay-go/logger"
	"github.com/mileston/pay-go/metrics"
	"github.com/mileston/pay-go/registry"
	"github.com/mileston/pay-go/txbuilder"
	"github.com/mileston/pay-go/types"
	"github.com/mileston/pay-go/wallet"
)

type Orchestrator struct {
	wallets  *wallet.Registry
	prices   txbuilder.PriceSource
	dial     BackendDialer
	log      logger.Logger
	rec      metrics.Recorder
	validate *validator.Validate
}

func New(wallets *wallet.Registry, prices txbuilder.PriceSource, dial BackendDialer, log logger.Logger, rec metrics.Recorder) *Orchestrator {
	if dial == nil {
		dial = DialEVM
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		wallets:  wallets,
		prices:   prices,
		dial:     dial,
		log:      log,
		rec:      rec,
		validate: validator.New(),
	}
}

// Pay runs one payment end to end. preferred names the wallet to use; when
// empty and several wallets are installed, the selection sentinel is returned
// so the caller can show a picker and re-invoke.
//
// A chain-mismatch failure triggers exactly one wallet chain switch followed
// by a full replay; a second mismatch is terminal.
func (o *Orchestrator) Pay(ctx context.Context, req types.PaymentRequest, preferred types.WalletName) (*types.PaymentResult, error) {
	start := time.Now()
	labels := map[string]string{"chain": string(req.Chain)}

	result, err := o.pay(ctx, req, preferred)
	o.rec.ObserveLatency("pay", time.Since(start), labels)
	if err != nil {
		if !types.IsWalletSelectionRequired(err) {
			o.rec.IncCounter("payment_failed", labels)
			o.log.Error("payment failed", map[string]any{"chain": req.Chain, "code": types.CodeOf(err), "error": err.Error()})
		}
		return nil, err
	}

	o.rec.IncCounter("payment_success", labels)
	o.log.Info("payment confirmed", map[string]any{
		"chain": req.Chain, "txHash": result.ChainTxHash, "contractTxHash": result.ContractTxHash,
	})
	return result, nil
}

func (o *Orchestrator) pay(ctx context.Context, req types.PaymentRequest, preferred types.WalletName) (*types.PaymentResult, error) {
	if err := o.validateRequest(req); err != nil {
		return nil, err
	}

	desc, err := registry.ChainFor(req.Env, req.Chain)
	if err != nil {
		return nil, err
	}
	contract, err := registry.PaymentContractAddress(req.Env, req.Chain)
	if err != nil {
		return nil, err
	}

	// Resolve the amount before any wallet interaction so a stale oracle
	// never costs the user a connection prompt.
	amount, err := txbuilder.ResolveAmount(ctx, req.Env, req.Chain, req.Token, req.AmountUSD, o.prices)
	if err != nil {
		return nil, err
	}

	provider, err := o.wallets.Resolve(preferred)
	if err != nil {
		return nil, err
	}
	sess, err := wallet.Connect(ctx, provider)
	if err != nil {
		return nil, err
	}
	o.log.Debug("wallet connected", map[string]any{"wallet": provider.Name(), "address": sess.Address.Hex()})

	backend, err := o.dial(ctx, desc.RPCURL)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError,
			fmt.Sprintf("cannot reach %s RPC", desc.Name), err)
	}
	defer backend.Close()

	merchant := common.HexToAddress(req.RecipientAddress)
	switched := false
	// The replay after a chain switch reuses the connected session: a
	// mismatch aborts the attempt before any transaction landed, and
	// SwitchChain keeps the same wallet account.
	for {
		result, err := o.attempt(ctx, backend, sess, req.Chain, desc, contract, merchant, amount)
		if err == nil {
			return result, nil
		}
		if types.CodeOf(err) != types.CodeWrongNetwork || switched {
			return nil, err
		}

		o.log.Warn("chain mismatch, switching wallet chain", map[string]any{"chain": req.Chain, "chainID": desc.ChainID})
		if switchErr := sess.Provider.SwitchChain(ctx, desc.ChainID); switchErr != nil {
			return nil, types.NewPayError(types.CodeWrongNetwork,
				fmt.Sprintf("wallet could not switch to %s", desc.Name), switchErr)
		}
		switched = true
	}
}

// attempt runs one full pass: approval if needed, then the payment call.
func (o *Orchestrator) attempt(ctx context.Context, backend ChainBackend, sess *wallet.Session, chain types.Chain, desc registry.ChainDescriptor, contract, merchant common.Address, amount types.TokenAmount) (*types.PaymentResult, error) {
	pricer := gas.New(backend, o.prices, o.log)

	if !amount.IsNative() {
		if err := o.ensureAllowance(ctx, backend, pricer, sess, chain, desc, contract, amount); err != nil {
			return nil, err
		}
	}

	payData, err := txbuilder.EncodePay(merchant, amount)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "cannot encode payment call", err)
	}
	var value *big.Int
	if amount.IsNative() {
		value = amount.BaseUnits
	}

	gasEstimate, err := backend.EstimateGas(ctx, sess.Address, contract, value, payData)
	if err != nil {
		return nil, classifySubmitError(err, types.CodeTxFailed, "payment gas estimation failed")
	}
	fees, err := pricer.Fees(ctx, chain, desc, gasEstimate)
	if err != nil {
		return nil, types.NewPayError(types.CodeProtocolError, "cannot price payment fees", err)
	}

	call := types.PreparedCall{To: contract, Data: payData, Value: value, Gas: gasEstimate, Fees: fees}
	txHash, err := sess.Provider.SendTransaction(ctx, sess.Address, call)
	if err != nil {
		return nil, classifySubmitError(err, types.CodeTxFailed, "payment transaction was not accepted")
	}
	o.log.Info("payment submitted", map[string]any{"chain": chain, "txHash": txHash.Hex()})

	receipt, err := backend.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, types.NewPayError(types.CodeReceiptFailed, "payment receipt did not confirm", err).
			WithData("txHash", txHash.Hex())
	}
	if receipt.Status == 0 {
		return nil, types.NewPayError(types.CodeTxFailed, "payment transaction reverted", nil).
			WithData("txHash", txHash.Hex())
	}

	contractHash, ok := txbuilder.DecodePaymentProcessed(receipt, contract)
	if !ok {
		// Older deployments do not emit the event; the chain hash doubles as
		// the payment identifier.
		contractHash = txHash.Hex()
	}
	return &types.PaymentResult{
		ContractTxHash: contractHash,
		ChainTxHash:    txHash.Hex(),
		PayerAddress:   sess.Address.Hex(),
	}, nil
}

// ensureAllowance checks the current ERC-20 allowance toward the payment
// contract and, when short, submits an approval sized to the exact payment
// amount and waits for it to confirm.
func (o *Orchestrator) ensureAllowance(ctx context.Context, backend ChainBackend, pricer *gas.Pricer, sess *wallet.Session, chain types.Chain, desc registry.ChainDescriptor, contract common.Address, amount types.TokenAmount) error {
	allowanceData, err := txbuilder.EncodeAllowance(sess.Address, contract)
	if err != nil {
		return types.NewPayError(types.CodeProtocolError, "cannot encode allowance call", err)
	}
	ret, err := backend.CallContract(ctx, amount.Address, allowanceData)
	if err != nil {
		return classifySubmitError(err, types.CodeApprovalFailed, "allowance check failed")
	}
	allowance, err := txbuilder.DecodeAllowance(ret)
	if err != nil {
		return types.NewPayError(types.CodeApprovalFailed, "allowance response was malformed", err)
	}
	if allowance.Cmp(amount.BaseUnits) >= 0 {
		return nil
	}

	approveData, err := txbuilder.EncodeApprove(contract, amount.BaseUnits)
	if err != nil {
		return types.NewPayError(types.CodeProtocolError, "cannot encode approval", err)
	}
	gasEstimate, err := backend.EstimateGas(ctx, sess.Address, amount.Address, nil, approveData)
	if err != nil {
		return classifySubmitError(err, types.CodeApprovalFailed, "approval gas estimation failed")
	}
	fees, err := pricer.Fees(ctx, chain, desc, gasEstimate)
	if err != nil {
		return types.NewPayError(types.CodeProtocolError, "cannot price approval fees", err)
	}

	call := types.PreparedCall{To: amount.Address, Data: approveData, Gas: gasEstimate, Fees: fees}
	txHash, err := sess.Provider.SendTransaction(ctx, sess.Address, call)
	if err != nil {
		return classifySubmitError(err, types.CodeApprovalFailed, "approval transaction was not accepted")
	}
	o.log.Debug("approval submitted", map[string]any{"chain": chain, "txHash": txHash.Hex()})

	receipt, err := backend.WaitForReceipt(ctx, txHash)
	if err != nil {
		return types.NewPayError(types.CodeApprovalFailed, "approval receipt did not confirm", err).
			WithData("txHash", txHash.Hex())
	}
	if receipt.Status == 0 {
		return types.NewPayError(types.CodeApprovalFailed, "approval transaction reverted", nil).
			WithData("txHash", txHash.Hex())
	}
	return nil
}

func (o *Orchestrator) validateRequest(req types.PaymentRequest) error {
	if err := o.validate.Struct(req); err != nil {
		return types.NewPayError(types.CodeMissingParameters, "payment request is incomplete", err)
	}
	if !req.Chain.Valid() {
		return types.NewPayError(types.CodeUnsupportedChain,
			fmt.Sprintf("chain %q is not supported", req.Chain), nil)
	}
	if !common.IsHexAddress(req.RecipientAddress) {
		return types.NewPayError(types.CodeMissingParameters,
			fmt.Sprintf("recipient address %q is not a valid address", req.RecipientAddress), nil)
	}
	return nil
}
