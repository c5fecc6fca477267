package payment

import (
	"errors"
	"fmt"
)

var (
	ErrPrepaymentNotRequired = errors.New("appointment does not require prepayment")
	ErrAttemptInFlight       = errors.New("a payment attempt is already awaiting confirmation")
	ErrAlreadySucceeded      = errors.New("appointment is already paid")
	ErrNotStarted            = errors.New("no payment attempt has been started")
	ErrRedirectPending       = errors.New("payment is waiting for the external authorization step")
	ErrHandleResolved        = errors.New("authorization handle already has a final outcome")
	ErrHandleNotFound        = errors.New("unknown authorization handle")
	ErrIllegalTransition     = errors.New("illegal payment phase transition")
)

// AuthorizationRequestFailedError means no handle was obtained. The
// attempt is dropped and a new one may start from scratch.
type AuthorizationRequestFailedError struct {
	Err error
}

func (e *AuthorizationRequestFailedError) Error() string {
	return fmt.Sprintf("payment authorization request failed: %v", e.Err)
}

func (e *AuthorizationRequestFailedError) Unwrap() error { return e.Err }

// PaymentDeclinedError carries the processor's message unchanged.
type PaymentDeclinedError struct {
	Handle  string
	Message string
}

func (e *PaymentDeclinedError) Error() string {
	return e.Message
}
