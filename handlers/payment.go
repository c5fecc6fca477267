package handlers

import (
	"errors"
	"io"
	"net/http"

	"metisconnect/models"
	"metisconnect/services/booking"
	"metisconnect/services/payment"
	"metisconnect/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBytes = 64 * 1024

// StartPayment requests an authorization handle for an appointment.
func (hb *HandlerBundle) StartPayment(c *gin.Context) {
	id := models.AppointmentID(c.Param("id"))
	attempt, err := hb.Flow.StartPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// ConfirmPayment confirms the pending attempt with the payer's details.
func (hb *HandlerBundle) ConfirmPayment(c *gin.Context) {
	id := models.AppointmentID(c.Param("id"))
	var billing models.BillingDetails
	if err := c.ShouldBindJSON(&billing); err != nil {
		respondError(c, &booking.ValidationError{Fields: []booking.FieldError{
			{Field: "billing", Message: err.Error()},
		}})
		return
	}

	res, err := hb.Flow.ConfirmPayment(c.Request.Context(), id, billing)
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, res)
}

// PaymentReturn is where the processor sends the payer after an external
// authorization step.
func (hb *HandlerBundle) PaymentReturn(c *gin.Context) {
	handle := c.Query("payment_intent")
	if handle == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing payment reference", "payment_intent query parameter is required")
		return
	}

	res, err := hb.Flow.ResumePayment(c.Request.Context(), handle)
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, res)
}

// PaymentWebhook resumes payments reported by Stripe events.
// It answers 501 until a signing secret is configured.
func (hb *HandlerBundle) PaymentWebhook(c *gin.Context) {
	logger := getLogger(c)

	if hb.WebhookSecret == "" {
		utils.JSONError(c, http.StatusNotImplemented, "Payment webhook is not available", "STRIPE_WEBHOOK_SECRET is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Unreadable webhook body", err.Error())
		return
	}

	event, err := payment.ParseWebhook(payload, c.GetHeader("Stripe-Signature"), hb.WebhookSecret)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid webhook", err.Error())
		return
	}
	if !event.Relevant() {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	// Declines are an outcome, not a webhook failure.
	if _, err := hb.Flow.ResumePaymentInBackground(c.Request.Context(), event.Handle); err != nil {
		if _, declined := payment.IsDecline(err); !declined && !errors.Is(err, payment.ErrHandleNotFound) {
			logger.Error("Webhook resumption failed", zap.String("handle", event.Handle), zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "Webhook processing failed", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func writeResult(c *gin.Context, res *payment.Result) {
	c.JSON(http.StatusOK, gin.H{
		"phase":       res.Phase,
		"attempt":     res.Attempt,
		"appointment": res.Appointment,
	})
}
