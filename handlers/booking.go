package handlers

import (
	"net/http"
	"time"

	"metisconnect/models"
	"metisconnect/services/booking"

	"github.com/gin-gonic/gin"
)

// ListServices returns the service catalog.
func (hb *HandlerBundle) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": booking.ListServices()})
}

// GetAvailability answers GET /api/appointments/availability?date&service.
func (hb *HandlerBundle) GetAvailability(c *gin.Context) {
	raw := c.Query("date")
	date, err := time.ParseInLocation("2006-01-02", raw, hb.Flow.Resolver.Location())
	if err != nil {
		respondError(c, &booking.ValidationError{Fields: []booking.FieldError{
			{Field: "date", Message: "must match 2006-01-02"},
		}})
		return
	}

	slots, err := hb.Flow.LoadAvailability(c.Request.Context(), date, c.Query("service"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":            raw,
		"available_slots": slots,
		"total_slots":     len(slots),
	})
}

// ListAppointments refreshes the stored appointment list from the server.
func (hb *HandlerBundle) ListAppointments(c *gin.Context) {
	status := models.AppointmentStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		respondError(c, &booking.ValidationError{Fields: []booking.FieldError{
			{Field: "status", Message: "is not a known status"},
		}})
		return
	}

	list, err := hb.Flow.RefreshAppointments(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": list})
}

// CreateAppointment submits a booking draft.
func (hb *HandlerBundle) CreateAppointment(c *gin.Context) {
	var draft models.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondError(c, &booking.ValidationError{Fields: []booking.FieldError{
			{Field: "body", Message: err.Error()},
		}})
		return
	}

	appt, err := hb.Flow.SubmitBooking(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// CancelAppointment cancels one stored appointment.
func (hb *HandlerBundle) CancelAppointment(c *gin.Context) {
	id := models.AppointmentID(c.Param("id"))
	if err := hb.Flow.CancelAppointment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled", "id": id})
}

type statusRequest struct {
	NewStatus models.AppointmentStatus `json:"new_status" binding:"required"`
}

// UpdateAppointmentStatus requests a status change for one appointment.
func (hb *HandlerBundle) UpdateAppointmentStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &booking.ValidationError{Fields: []booking.FieldError{
			{Field: "new_status", Message: err.Error()},
		}})
		return
	}

	id := models.AppointmentID(c.Param("id"))
	appt, err := hb.Flow.RequestStatusChange(c.Request.Context(), id, req.NewStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// UpdateDraft replaces the current booking draft. An empty body clears it.
func (hb *HandlerBundle) UpdateDraft(c *gin.Context) {
	if c.Request.ContentLength == 0 {
		hb.Flow.UpdateDraft(nil)
		c.JSON(http.StatusOK, gin.H{"draft": nil})
		return
	}
	var draft models.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondError(c, &booking.ValidationError{Fields: []booking.FieldError{
			{Field: "body", Message: err.Error()},
		}})
		return
	}
	hb.Flow.UpdateDraft(&draft)
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// GetState returns the current state snapshot.
func (hb *HandlerBundle) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, hb.Store.Snapshot())
}
