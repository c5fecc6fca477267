package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotTaken means the server refused the booking because the slot
	// was claimed by another session.
	ErrSlotTaken = errors.New("selected time slot is not available")
	ErrNotFound  = errors.New("appointment not found")
)

// TransientNetworkError is a connectivity or server-side failure on any
// remote call. The core never retries it on its own.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: booking service unreachable: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// APIError is a non-retryable rejection from the booking API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("booking api returned status %d", e.Status)
	}
	return fmt.Sprintf("booking api returned status %d: %s", e.Status, e.Detail)
}
