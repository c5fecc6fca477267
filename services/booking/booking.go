package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"metisconnect/models"
	"metisconnect/services/remote"

	"go.uber.org/zap"
)

// AppointmentCreator is the slice of the remote client the submitter needs.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error)
}

// SlotChecker re-checks a chosen start right before submission.
type SlotChecker interface {
	IsBookable(ctx context.Context, instant time.Time, durationMinutes int) (bool, error)
}

// BookingSubmitter validates drafts and turns them into server appointments.
type BookingSubmitter struct {
	creator  AppointmentCreator
	slots    SlotChecker
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewBookingSubmitter wires a submitter. A nil slots skips the pre-submit
// availability re-check.
func NewBookingSubmitter(creator AppointmentCreator, slots SlotChecker, location *time.Location, logger *zap.Logger) *BookingSubmitter {
	return &BookingSubmitter{
		creator:  creator,
		slots:    slots,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *BookingSubmitter) WithClock(now func() time.Time) *BookingSubmitter {
	s.now = now
	return s
}

// BuildRequest validates draft and produces the normalized create body.
// It performs no I/O.
func (s *BookingSubmitter) BuildRequest(draft models.BookingDraft) (models.CreateAppointmentRequest, error) {
	d := normalizeDraft(draft)
	instant, err := validateDraft(d, s.location, s.now())
	if err != nil {
		return models.CreateAppointmentRequest{}, err
	}
	svc, _ := LookupService(d.ServiceCode)

	return models.CreateAppointmentRequest{
		CustomerName:        d.CustomerName,
		CustomerPhone:       d.CustomerPhone,
		CustomerEmail:       d.CustomerEmail,
		AppointmentDatetime: instant,
		ServiceType:         svc.Code,
		ServiceDuration:     svc.DurationMinutes,
		ServicePrice:        svc.UnitPrice,
		Notes:               d.Notes,
		RequiresPrepayment:  d.RequiresPrepayment,
	}, nil
}

// Submit validates draft, re-checks the slot and creates the appointment.
func (s *BookingSubmitter) Submit(ctx context.Context, draft models.BookingDraft) (*models.Appointment, error) {
	req, err := s.BuildRequest(draft)
	if err != nil {
		return nil, err
	}

	if s.slots != nil {
		ok, err := s.slots.IsBookable(ctx, req.AppointmentDatetime, req.ServiceDuration)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Info("Chosen slot vanished before submission",
				zap.Time("start", req.AppointmentDatetime),
				zap.String("service", req.ServiceType))
			return nil, &BookingConflictError{Start: req.AppointmentDatetime}
		}
	}

	appt, err := s.creator.CreateAppointment(ctx, req)
	if err != nil {
		if errors.Is(err, remote.ErrSlotTaken) {
			return nil, &BookingConflictError{Start: req.AppointmentDatetime, Err: err}
		}
		return nil, fmt.Errorf("submit booking: %w", err)
	}

	s.logger.Info("Appointment created",
		zap.String("appointment_id", appt.ID.String()),
		zap.Time("start", appt.AppointmentDatetime),
		zap.String("service", appt.ServiceType),
		zap.Bool("requires_prepayment", appt.RequiresPrepayment))
	return appt, nil
}
