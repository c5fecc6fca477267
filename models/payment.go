package models

// PaymentOutcome of a single authorization attempt.
type PaymentOutcome string

const (
	OutcomePending        PaymentOutcome = "pending"
	OutcomeSucceeded      PaymentOutcome = "succeeded"
	OutcomeFailed         PaymentOutcome = "failed"
	OutcomeRequiresAction PaymentOutcome = "requiresAction"
)

// Terminal outcomes can never be confirmed again.
func (o PaymentOutcome) Terminal() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

const CurrencyEUR = "eur"

// PaymentAttempt lives from the authorization request until its outcome
// has been surfaced to the caller.
type PaymentAttempt struct {
	AppointmentID       AppointmentID  `json:"appointmentId"`
	Amount              float64        `json:"amount"`
	Currency            string         `json:"currency"`
	AuthorizationHandle string         `json:"authorizationHandle"`
	ClientSecret        string         `json:"clientSecret,omitempty"`
	Outcome             PaymentOutcome `json:"outcome"`
	Message             string         `json:"message,omitempty"`
	RedirectURL         string         `json:"redirectUrl,omitempty"`
}

// BillingDetails are supplied by the payer at confirmation time.
// PaymentMethod is the tokenized method id from the card element.
type BillingDetails struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}
