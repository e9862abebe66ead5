package contract

import (
	"errors"
	"fmt"

	"cavernlsd/crypto"
	"cavernlsd/native/lsdhub"
	"cavernlsd/native/token"
	"cavernlsd/native/wrapper"
)

// ErrInvalidMsg is returned for payloads that do not decode into exactly one
// variant.
var ErrInvalidMsg = errors.New("wrapper contract: invalid message")

// Error is the JSON form of a failed invocation. It unwraps to the original
// error so callers can still match sentinels.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

// AsError classifies err. A nil err yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: errorKind(err), Message: err.Error(), err: err}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMsg):
		return "invalid_message"
	case errors.Is(err, wrapper.ErrUnauthorized), errors.Is(err, token.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, wrapper.ErrTooSoon):
		return "too_soon"
	case errors.Is(err, wrapper.ErrRatioAccountingUnderflow):
		return "ratio_accounting_underflow"
	case errors.Is(err, wrapper.ErrSlashingDetected):
		return "slashing_detected"
	case errors.Is(err, wrapper.ErrAdapterQuery):
		return "adapter_query"
	case errors.Is(err, wrapper.ErrArithmetic), errors.Is(err, token.ErrAmountOverflow):
		return "arithmetic"
	case errors.Is(err, wrapper.ErrInvalidRatio), errors.Is(err, lsdhub.ErrInvalidConfig),
		errors.Is(err, token.ErrInvalidTokenInfo):
		return "invalid_config"
	case errors.Is(err, wrapper.ErrAlreadyInstantiated):
		return "already_instantiated"
	case errors.Is(err, lsdhub.ErrInvalidFunds):
		return "invalid_funds"
	case errors.Is(err, lsdhub.ErrStalePrice), errors.Is(err, lsdhub.ErrInvalidRate):
		return "invalid_price"
	case errors.Is(err, token.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, token.ErrInvalidZeroAmount):
		return "invalid_zero_amount"
	case errors.Is(err, token.ErrNoAllowance), errors.Is(err, token.ErrAllowanceExpired),
		errors.Is(err, token.ErrInvalidExpiration), errors.Is(err, token.ErrOwnAccount):
		return "allowance"
	case errors.Is(err, token.ErrCannotExceedCap):
		return "cap_exceeded"
	case errors.Is(err, crypto.ErrInvalidAddress), errors.Is(err, crypto.ErrWrongPrefix):
		return "invalid_address"
	default:
		return "std"
	}
}

func invalidMsg(cause error) error {
	if cause == nil {
		return ErrInvalidMsg
	}
	return fmt.Errorf("%w: %v", ErrInvalidMsg, cause)
}
