package handlers

import (
	"metisconnect/services/booking"
	ai "metisconnect/services/intelligence"
	"metisconnect/services/state"
)

// HandlerBundle groups the dependencies the endpoint handlers share.
type HandlerBundle struct {
	Flow  *booking.AppointmentFlow
	Store state.Store

	// Voice is nil when speech-to-text is not configured.
	Voice *ai.VoiceAssistant

	// WebhookSecret verifies Stripe webhook signatures.
	WebhookSecret string
}
