package handlers

import (
	"errors"
	"net/http"

	"metisconnect/services/booking"
	"metisconnect/services/payment"
	"metisconnect/services/remote"
	"metisconnect/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps a flow error onto an HTTP status and writes it.
func respondError(c *gin.Context, err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		utils.JSONFieldError(c, booking.DescribeError(err), verr.Fields)
		return
	}
	utils.JSONError(c, statusFor(err), booking.DescribeError(err), err.Error())
}

func statusFor(err error) int {
	var (
		conflict  *booking.BookingConflictError
		slots     *booking.SlotsUnavailableError
		declined  *payment.PaymentDeclinedError
		authFail  *payment.AuthorizationRequestFailedError
		transient *remote.TransientNetworkError
		apiErr    *remote.APIError
	)
	switch {
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &declined):
		return http.StatusPaymentRequired
	case errors.As(err, &slots), errors.As(err, &authFail), errors.As(err, &transient):
		return http.StatusServiceUnavailable
	case errors.Is(err, booking.ErrUnknownService), errors.Is(err, booking.ErrUnknownDuration):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrAppointmentNotFound),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, payment.ErrNotStarted),
		errors.Is(err, payment.ErrHandleNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrAttemptInFlight),
		errors.Is(err, payment.ErrRedirectPending),
		errors.Is(err, payment.ErrAlreadySucceeded),
		errors.Is(err, payment.ErrHandleResolved),
		errors.Is(err, payment.ErrPrepaymentNotRequired),
		errors.Is(err, payment.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, booking.ErrPaymentsDisabled):
		return http.StatusNotImplemented
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
