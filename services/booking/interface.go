package booking

import (
	"context"

	"metisconnect/models"
	"metisconnect/services/payment"
)

// PaymentWorkflow is the payment state machine as seen by the flow.
type PaymentWorkflow interface {
	Start(ctx context.Context, appt models.Appointment) (*models.PaymentAttempt, error)
	Confirm(ctx context.Context, id models.AppointmentID, billing models.BillingDetails) (*payment.Result, error)
	Resume(ctx context.Context, handle string) (*payment.Result, error)
}

// AppointmentRemote covers the appointment calls beyond creation.
type AppointmentRemote interface {
	ListAppointments(ctx context.Context, status models.AppointmentStatus) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, id models.AppointmentID, status models.AppointmentStatus) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, id models.AppointmentID) error
}

// ReminderScheduler schedules a customer reminder for an appointment and
// withdraws it on cancellation.
type ReminderScheduler interface {
	Schedule(ctx context.Context, appt models.Appointment) error
	Cancel(ctx context.Context, id models.AppointmentID) error
}

// Notifier sends the booking and cancellation messages.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, appt models.Appointment) error
	SendCancellationNotice(ctx context.Context, appt models.Appointment) error
}
