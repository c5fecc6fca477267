package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"metisconnect/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const defaultDeclineMessage = "The payment was not completed."

// StripeProcessor implements Processor with Stripe PaymentIntents. It
// relies on the package-level stripe.Key set at startup.
type StripeProcessor struct {
	logger *zap.Logger
}

func NewStripeProcessor(logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{logger: logger}
}

func (p *StripeProcessor) RequestAuthorization(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toMinorUnits(req.Amount)),
		Currency:           stripe.String(req.Currency),
		Description:        stripe.String(req.Description),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	params.Context = ctx
	params.AddMetadata("appointment_id", req.AppointmentID.String())
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Authorization{Handle: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProcessor) Confirm(ctx context.Context, req ConfirmRequest) (*ProcessorResult, error) {
	methodID, err := p.paymentMethod(ctx, req.Billing)
	if err != nil {
		if res, ok := declineResult(err); ok {
			return res, nil
		}
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(methodID),
		ReturnURL:     stripe.String(req.ReturnURL),
	}
	if req.Billing.Email != "" {
		params.ReceiptEmail = stripe.String(req.Billing.Email)
	}
	params.Context = ctx

	pi, err := paymentintent.Confirm(req.Handle, params)
	if err != nil {
		if res, ok := declineResult(err); ok {
			p.logger.Info("Card declined", zap.String("handle", req.Handle), zap.String("message", res.Message))
			return res, nil
		}
		return nil, fmt.Errorf("confirm payment intent: %w", err)
	}
	return intentResult(pi), nil
}

func (p *StripeProcessor) Lookup(ctx context.Context, handle string) (*ProcessorResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(handle, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return intentResult(pi), nil
}

// paymentMethod turns a card token into a PaymentMethod carrying the
// billing details. PaymentMethod ids are used as given.
func (p *StripeProcessor) paymentMethod(ctx context.Context, billing models.BillingDetails) (string, error) {
	if !strings.HasPrefix(billing.PaymentMethod, "tok_") {
		return billing.PaymentMethod, nil
	}
	details := &stripe.PaymentMethodBillingDetailsParams{
		Name: stripe.String(billing.Name),
	}
	if billing.Email != "" {
		details.Email = stripe.String(billing.Email)
	}
	if billing.Phone != "" {
		details.Phone = stripe.String(billing.Phone)
	}
	params := &stripe.PaymentMethodParams{
		Type:           stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card:           &stripe.PaymentMethodCardParams{Token: stripe.String(billing.PaymentMethod)},
		BillingDetails: details,
	}
	params.Context = ctx
	pm, err := paymentmethod.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment method: %w", err)
	}
	return pm.ID, nil
}

func intentResult(pi *stripe.PaymentIntent) *ProcessorResult {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &ProcessorResult{Outcome: models.OutcomeSucceeded}
	case stripe.PaymentIntentStatusRequiresAction:
		res := &ProcessorResult{Outcome: models.OutcomeRequiresAction}
		if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
			res.RedirectURL = pi.NextAction.RedirectToURL.URL
		}
		return res
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		msg := defaultDeclineMessage
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			msg = pi.LastPaymentError.Msg
		}
		return &ProcessorResult{Outcome: models.OutcomeFailed, Message: msg}
	default:
		return &ProcessorResult{Outcome: models.OutcomePending}
	}
}

func declineResult(err error) (*ProcessorResult, bool) {
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		msg := se.Msg
		if msg == "" {
			msg = defaultDeclineMessage
		}
		return &ProcessorResult{Outcome: models.OutcomeFailed, Message: msg}, true
	}
	return nil, false
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// WebhookEvent is the part of a Stripe event the workflow acts on.
type WebhookEvent struct {
	Type   string
	Handle string
}

// Relevant reports whether the event resolves a payment intent.
func (e WebhookEvent) Relevant() bool {
	return e.Type == "payment_intent.succeeded" || e.Type == "payment_intent.payment_failed"
}

// ParseWebhook verifies the Stripe signature and extracts the intent id.
func ParseWebhook(payload []byte, signature, secret string) (WebhookEvent, error) {
	// Only the intent id is read, so events rendered for another API
	// version are accepted.
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("verify webhook: %w", err)
	}
	out := WebhookEvent{Type: string(event.Type)}
	if !out.Relevant() {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook payment intent: %w", err)
	}
	out.Handle = pi.ID
	return out, nil
}
