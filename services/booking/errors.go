package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownService      = errors.New("unknown service")
	ErrUnknownDuration     = errors.New("duration does not match any service")
	ErrAppointmentNotFound = errors.New("appointment not found in local state")
	ErrPaymentsDisabled    = errors.New("online payments are not configured")
)

// FieldError is one offending draft field, named as the UI names it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is raised before any network call and never reaches
// the global error flag.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid booking: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the offending ones.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// SlotsUnavailableError means availability could not be determined. It
// does not mean the day is fully booked.
type SlotsUnavailableError struct {
	Date string
	Err  error
}

func (e *SlotsUnavailableError) Error() string {
	return fmt.Sprintf("slots unavailable for %s: %v", e.Date, e.Err)
}

func (e *SlotsUnavailableError) Unwrap() error { return e.Err }

// BookingConflictError means the chosen slot was claimed between query
// and submission. Callers re-fetch availability instead of retrying.
type BookingConflictError struct {
	Start time.Time
	Err   error
}

func (e *BookingConflictError) Error() string {
	return fmt.Sprintf("slot %s is no longer available", e.Start.Format(time.RFC3339))
}

func (e *BookingConflictError) Unwrap() error { return e.Err }
