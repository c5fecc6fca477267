package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AppointmentStatus is server-driven; the client only echoes confirmed changes.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AppointmentID is an opaque server-assigned identifier. The booking API
// has served both integer and string ids, so both decode.
type AppointmentID string

func (id *AppointmentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = AppointmentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("appointment id: %w", err)
	}
	*id = AppointmentID(n.String())
	return nil
}

func (id AppointmentID) String() string { return string(id) }

// Appointment is the client's cached copy of a server record.
type Appointment struct {
	ID                  AppointmentID     `json:"id"`
	CustomerName        string            `json:"customer_name"`
	CustomerPhone       string            `json:"customer_phone"`
	CustomerEmail       string            `json:"customer_email,omitempty"`
	AppointmentDatetime time.Time         `json:"appointment_datetime"`
	ServiceType         string            `json:"service_type"`
	ServiceDuration     int               `json:"service_duration"`
	ServicePrice        float64           `json:"service_price"`
	Notes               string            `json:"notes,omitempty"`
	RequiresPrepayment  bool              `json:"requires_prepayment"`
	Status              AppointmentStatus `json:"status"`
	PaymentID           string            `json:"payment_id,omitempty"`
	CreatedAt           *time.Time        `json:"created_at,omitempty"`
}

// CreateAppointmentRequest is the normalized body of POST /appointments.
type CreateAppointmentRequest struct {
	CustomerName        string    `json:"customer_name"`
	CustomerPhone       string    `json:"customer_phone"`
	CustomerEmail       string    `json:"customer_email,omitempty"`
	AppointmentDatetime time.Time `json:"appointment_datetime"`
	ServiceType         string    `json:"service_type"`
	ServiceDuration     int       `json:"service_duration"`
	ServicePrice        float64   `json:"service_price"`
	Notes               string    `json:"notes,omitempty"`
	RequiresPrepayment  bool      `json:"requires_prepayment"`
}
