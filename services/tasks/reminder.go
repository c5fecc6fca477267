package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"metisconnect/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendReminder = "reminder:send"
	ReminderQueue    = "default"
)

// ReminderTaskID is the queue id of the reminder for id. One reminder
// exists per appointment.
func ReminderTaskID(id models.AppointmentID) string {
	return "reminder:" + id.String()
}

func NewReminderTask(payload models.ReminderPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.Queue(ReminderQueue),
		asynq.ProcessAt(payload.FireAt),
		asynq.TaskID(ReminderTaskID(payload.AppointmentID)),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

// Enqueuer is the part of *asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskDeleter is the part of *asynq.Inspector the scheduler uses.
type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

// ReminderScheduler enqueues a reminder a fixed lead time before each
// appointment and withdraws it when the appointment is cancelled.
type ReminderScheduler struct {
	queue     Enqueuer
	inspector TaskDeleter
	lead      time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewReminderScheduler(queue Enqueuer, inspector TaskDeleter, lead time.Duration, logger *zap.Logger) *ReminderScheduler {
	return &ReminderScheduler{queue: queue, inspector: inspector, lead: lead, now: time.Now, logger: logger}
}

// Schedule enqueues the reminder for appt. Appointments whose reminder
// time has passed or that are cancelled are skipped.
func (s *ReminderScheduler) Schedule(ctx context.Context, appt models.Appointment) error {
	if appt.Status == models.StatusCancelled {
		return nil
	}
	fireAt := appt.AppointmentDatetime.Add(-s.lead)
	if !fireAt.After(s.now()) {
		s.logger.Debug("Reminder time already passed",
			zap.String("appointment_id", appt.ID.String()), zap.Time("fire_at", fireAt))
		return nil
	}

	task, opts, err := NewReminderTask(models.ReminderPayload{
		AppointmentID: appt.ID,
		CustomerName:  appt.CustomerName,
		CustomerPhone: appt.CustomerPhone,
		CustomerEmail: appt.CustomerEmail,
		ServiceType:   appt.ServiceType,
		StartsAt:      appt.AppointmentDatetime,
		FireAt:        fireAt,
	})
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	if _, err := s.queue.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue reminder for %s: %w", appt.ID, err)
	}
	s.logger.Info("Reminder scheduled",
		zap.String("appointment_id", appt.ID.String()), zap.Time("fire_at", fireAt))
	return nil
}

// Cancel removes the pending reminder for id. A reminder that was never
// scheduled, or already sent, is not an error.
func (s *ReminderScheduler) Cancel(ctx context.Context, id models.AppointmentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.inspector.DeleteTask(ReminderQueue, ReminderTaskID(id))
	switch {
	case err == nil:
		s.logger.Info("Reminder withdrawn", zap.String("appointment_id", id.String()))
		return nil
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return nil
	default:
		return fmt.Errorf("withdraw reminder for %s: %w", id, err)
	}
}
