package notification

import (
	"context"
	"fmt"

	"metisconnect/models"

	"go.uber.org/zap"
)

// NotificationService delivers customer-facing messages.
type NotificationService interface {
	SendAppointmentReminder(ctx context.Context, reminder models.ReminderPayload) error
	SendBookingConfirmation(ctx context.Context, appt models.Appointment) error
	SendCancellationNotice(ctx context.Context, appt models.Appointment) error
}

// LogNotificationService writes messages to the structured log. Delivery
// channels (WhatsApp, SMS) plug in behind the same interface.
type LogNotificationService struct {
	logger *zap.Logger
}

func NewLogNotificationService(logger *zap.Logger) (*LogNotificationService, error) {
	if logger == nil {
		return nil, fmt.Errorf("notification service initialization error: logger is nil")
	}
	return &LogNotificationService{logger: logger}, nil
}

func (s *LogNotificationService) SendAppointmentReminder(ctx context.Context, r models.ReminderPayload) error {
	if r.CustomerPhone == "" && r.CustomerEmail == "" {
		return fmt.Errorf("SendAppointmentReminder: appointment %s has no contact", r.AppointmentID)
	}
	s.logger.Info("Appointment reminder",
		zap.String("appointment_id", r.AppointmentID.String()),
		zap.String("customer", r.CustomerName),
		zap.String("phone", r.CustomerPhone),
		zap.String("service", r.ServiceType),
		zap.Time("starts_at", r.StartsAt),
		zap.String("message", ReminderText(r)))
	return nil
}

// ReminderText renders the reminder body.
func ReminderText(r models.ReminderPayload) string {
	return fmt.Sprintf("Ciao %s, ti ricordiamo l'appuntamento per %s il %s alle %s.",
		r.CustomerName, r.ServiceType, r.StartsAt.Format("02/01/2006"), r.StartsAt.Format("15:04"))
}

func (s *LogNotificationService) SendBookingConfirmation(ctx context.Context, appt models.Appointment) error {
	return s.send("Booking confirmation", appt, ConfirmationText(appt))
}

func (s *LogNotificationService) SendCancellationNotice(ctx context.Context, appt models.Appointment) error {
	return s.send("Cancellation notice", appt, CancellationText(appt))
}

func (s *LogNotificationService) send(kind string, appt models.Appointment, text string) error {
	if appt.CustomerPhone == "" && appt.CustomerEmail == "" {
		return fmt.Errorf("%s: appointment %s has no contact", kind, appt.ID)
	}
	s.logger.Info(kind,
		zap.String("appointment_id", appt.ID.String()),
		zap.String("customer", appt.CustomerName),
		zap.String("phone", appt.CustomerPhone),
		zap.String("message", text))
	return nil
}

// ConfirmationText renders the message sent once a booking is created.
func ConfirmationText(appt models.Appointment) string {
	at := appt.AppointmentDatetime.In(models.LocalZone)
	return fmt.Sprintf("Ciao %s, la tua prenotazione è stata confermata: %s il %s alle %s (%d minuti, € %.2f).",
		appt.CustomerName, appt.ServiceType, at.Format("02/01/2006"), at.Format("15:04"),
		appt.ServiceDuration, appt.ServicePrice)
}

// CancellationText renders the notice sent when a booking is cancelled.
func CancellationText(appt models.Appointment) string {
	at := appt.AppointmentDatetime.In(models.LocalZone)
	return fmt.Sprintf("Ciao %s, il tuo appuntamento del %s alle %s è stato cancellato. Se hai bisogno di prenotare nuovamente, contattaci!",
		appt.CustomerName, at.Format("02/01/2006"), at.Format("15:04"))
}
