package payment

import (
	"context"

	"metisconnect/models"
)

// AuthorizationRequest asks the processor for a new authorization handle.
type AuthorizationRequest struct {
	AppointmentID  models.AppointmentID
	Amount         float64
	Currency       string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
}

// Authorization is what the processor hands back for a new attempt.
type Authorization struct {
	Handle       string
	ClientSecret string
}

// ConfirmRequest confirms a handle with the payer's billing details.
type ConfirmRequest struct {
	Handle    string
	Billing   models.BillingDetails
	ReturnURL string
}

// ProcessorResult is the processor's view of a handle. A declined payment
// is a result with OutcomeFailed, not an error; errors are reserved for
// calls that produced no outcome at all.
type ProcessorResult struct {
	Outcome     models.PaymentOutcome
	Message     string
	RedirectURL string
}

// Processor is the external payment processor.
type Processor interface {
	RequestAuthorization(ctx context.Context, req AuthorizationRequest) (*Authorization, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*ProcessorResult, error)
	Lookup(ctx context.Context, handle string) (*ProcessorResult, error)
}

// Result is returned once confirmation or resumption produced an outcome.
type Result struct {
	Phase       Phase
	Attempt     models.PaymentAttempt
	Appointment models.Appointment
}
