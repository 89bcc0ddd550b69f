package types

import "errors"

// Error codes for terminal orchestration failures, plus the one control-flow
// sentinel (CodeWalletSelectionRequired). Callers branch on the code; the
// message is safe to surface to an end user as-is.
const (
	CodeMissingParameters       = "MISSING_PARAMETERS"
	CodeNoWalletDetected        = "NO_WALLET_DETECTED"
	CodeWalletSelectionRequired = "WALLET_SELECTION_REQUIRED"
	CodeWalletUnavailable       = "WALLET_UNAVAILABLE"
	CodeConnectionRejected      = "CONNECTION_REJECTED"
	CodeUnsupportedToken        = "UNSUPPORTED_TOKEN"
	CodeUnsupportedChain        = "UNSUPPORTED_CHAIN"
	CodePriceUnavailable        = "PRICE_UNAVAILABLE"
	CodeApprovalFailed          = "APPROVAL_FAILED"
	CodeReceiptFailed           = "RECEIPT_CONFIRMATION_FAILED"
	CodeWrongNetwork            = "WRONG_NETWORK"
	CodeInsufficientFunds       = "INSUFFICIENT_FUNDS"
	CodeUserRejected            = "USER_REJECTED"
	CodeTxFailed                = "TX_FAILED"
	CodeProtocolError           = "PROTOCOL_ERROR"
)

// PayError is the structured error returned by every SDK operation. Code is
// stable for programmatic handling; Data carries optional context such as a
// submitted transaction hash.
type PayError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Err     error          `json:"-"`
}

func (e *PayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PayError) Unwrap() error {
	return e.Err
}

// NewPayError builds a PayError wrapping an optional cause.
func NewPayError(code, message string, err error) *PayError {
	return &PayError{Code: code, Message: message, Err: err}
}

// WithData attaches a context value, lazily allocating the map.
func (e *PayError) WithData(key string, value any) *PayError {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// CodeOf extracts the PayError code from an error chain, or "" if the error
// is not a PayError.
func CodeOf(err error) string {
	var pe *PayError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsWalletSelectionRequired reports whether err is the two-phase sentinel:
// the caller should present a wallet picker and re-invoke with the chosen
// wallet rather than treat the error as a failure.
func IsWalletSelectionRequired(err error) bool {
	return CodeOf(err) == CodeWalletSelectionRequired
}
