package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"metisconnect/models"
	"metisconnect/services/payment"
	"metisconnect/services/remote"
	"metisconnect/services/state"
	"metisconnect/utils"

	"go.uber.org/zap"
)

// AppointmentFlow runs user actions against the components and reflects
// their results in the state store.
type AppointmentFlow struct {
	Store     state.Store
	Resolver  *AvailabilityResolver
	Submitter *BookingSubmitter
	Remote    AppointmentRemote
	Payments  PaymentWorkflow   // nil when payments are not configured
	Reminders ReminderScheduler // optional
	Notifier  Notifier          // optional
	Logger    *zap.Logger
}

// LoadAvailability fetches the slots for serviceCode on date and stores them.
func (f *AppointmentFlow) LoadAvailability(ctx context.Context, date time.Time, serviceCode string) ([]models.TimeSlot, error) {
	svc, ok := LookupService(serviceCode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, serviceCode)
	}

	f.begin()
	slots, err := f.Resolver.GetAvailableSlots(ctx, date, svc.DurationMinutes)
	if err != nil {
		utils.AvailabilityQueries.WithLabelValues("error").Inc()
		f.fail(ctx, "load availability", err)
		return nil, err
	}

	if len(slots) == 0 {
		utils.AvailabilityQueries.WithLabelValues("empty").Inc()
	} else {
		utils.AvailabilityQueries.WithLabelValues("ok").Inc()
	}
	f.Store.DispatchIfAlive(ctx, state.SetAvailableSlots{Slots: slots})
	f.end()
	return slots, nil
}

// SubmitBooking validates draft locally, then creates the appointment and
// appends it to the store. Validation failures leave the store untouched.
func (f *AppointmentFlow) SubmitBooking(ctx context.Context, draft models.BookingDraft) (*models.Appointment, error) {
	if _, err := f.Submitter.BuildRequest(draft); err != nil {
		utils.BookingSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	f.begin()
	appt, err := f.Submitter.Submit(ctx, draft)
	if err != nil {
		var conflict *BookingConflictError
		if errors.As(err, &conflict) {
			utils.BookingSubmissions.WithLabelValues("conflict").Inc()
			f.refreshAfterConflict(ctx, conflict.Start, draft.ServiceCode)
		} else {
			utils.BookingSubmissions.WithLabelValues("error").Inc()
		}
		f.fail(ctx, "submit booking", err)
		return nil, err
	}

	utils.BookingSubmissions.WithLabelValues("ok").Inc()
	f.Store.DispatchIfAlive(ctx, state.AddAppointment{Appointment: *appt})
	f.Store.DispatchIfAlive(ctx, state.SetCurrentBooking{Draft: nil})
	f.end()

	f.scheduleReminder(ctx, *appt)
	f.notify(ctx, "booking confirmation", *appt, f.notifier().SendBookingConfirmation)
	return appt, nil
}

// refreshAfterConflict replaces the stale slot list so the user can pick
// again. Failures are only logged; the conflict is what gets reported.
func (f *AppointmentFlow) refreshAfterConflict(ctx context.Context, day time.Time, serviceCode string) {
	svc, ok := LookupService(serviceCode)
	if !ok {
		return
	}
	slots, err := f.Resolver.GetAvailableSlots(ctx, day, svc.DurationMinutes)
	if err != nil {
		f.Logger.Warn("Could not refresh availability after conflict", zap.Error(err))
		return
	}
	f.Store.DispatchIfAlive(ctx, state.SetAvailableSlots{Slots: slots})
}

// StartPayment requests an authorization for a stored appointment.
func (f *AppointmentFlow) StartPayment(ctx context.Context, id models.AppointmentID) (*models.PaymentAttempt, error) {
	if f.Payments == nil {
		return nil, ErrPaymentsDisabled
	}
	appt, ok := f.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}

	f.begin()
	att, err := f.Payments.Start(ctx, appt)
	if err != nil {
		f.fail(ctx, "start payment", err)
		return nil, err
	}
	f.end()
	return att, nil
}

// ConfirmPayment confirms the pending attempt of id with billing.
func (f *AppointmentFlow) ConfirmPayment(ctx context.Context, id models.AppointmentID, billing models.BillingDetails) (*payment.Result, error) {
	if f.Payments == nil {
		return nil, ErrPaymentsDisabled
	}

	f.begin()
	res, err := f.Payments.Confirm(ctx, id, billing)
	if err != nil {
		f.fail(ctx, "confirm payment", err)
		return nil, err
	}
	defer f.end()
	return f.settle(ctx, res), nil
}

// ResumePayment finishes an attempt after the external authorization step.
func (f *AppointmentFlow) ResumePayment(ctx context.Context, handle string) (*payment.Result, error) {
	if f.Payments == nil {
		return nil, ErrPaymentsDisabled
	}

	f.begin()
	res, err := f.Payments.Resume(ctx, handle)
	if err != nil {
		f.fail(ctx, "resume payment", err)
		return nil, err
	}
	defer f.end()
	return f.settle(ctx, res), nil
}

// ResumePaymentInBackground resolves a handle reported by the processor
// itself. The user is not waiting on it, so the loading and error flags
// are left alone; only a confirmed payment changes the store.
func (f *AppointmentFlow) ResumePaymentInBackground(ctx context.Context, handle string) (*payment.Result, error) {
	if f.Payments == nil {
		return nil, ErrPaymentsDisabled
	}
	res, err := f.Payments.Resume(ctx, handle)
	if err != nil {
		f.Logger.Info("Background payment resumption ended without success",
			zap.String("handle", handle), zap.Error(err))
		return nil, err
	}
	return f.settle(ctx, res), nil
}

// settle reflects a non-failed payment result in the store. A success
// marks the appointment confirmed, on the server when possible.
func (f *AppointmentFlow) settle(ctx context.Context, res *payment.Result) *payment.Result {
	if res.Attempt.Outcome != models.OutcomeSucceeded {
		return res
	}

	confirmed := res.Appointment
	confirmed.Status = models.StatusConfirmed
	confirmed.PaymentID = res.Attempt.AuthorizationHandle

	updated, err := f.Remote.UpdateStatus(ctx, confirmed.ID, models.StatusConfirmed)
	switch {
	case err != nil:
		f.Logger.Error("Payment succeeded but status sync failed",
			zap.String("appointment_id", confirmed.ID.String()), zap.Error(err))
		f.Store.DispatchIfAlive(ctx, state.UpdateAppointment{Appointment: confirmed})
		f.Store.DispatchIfAlive(ctx, state.SetError{
			Message: "Payment received. The booking will be confirmed as soon as the server is reachable.",
		})
	default:
		if updated != nil {
			if updated.PaymentID == "" {
				updated.PaymentID = confirmed.PaymentID
			}
			confirmed = *updated
		}
		f.Store.DispatchIfAlive(ctx, state.UpdateAppointment{Appointment: confirmed})
	}

	res.Appointment = confirmed
	return res
}

// CancelAppointment cancels id on the server and echoes it locally.
func (f *AppointmentFlow) CancelAppointment(ctx context.Context, id models.AppointmentID) error {
	appt, ok := f.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}

	f.begin()
	if err := f.Remote.CancelAppointment(ctx, id); err != nil {
		f.fail(ctx, "cancel appointment", err)
		return err
	}
	appt.Status = models.StatusCancelled
	f.Store.DispatchIfAlive(ctx, state.UpdateAppointment{Appointment: appt})
	f.end()

	if f.Reminders != nil {
		if err := f.Reminders.Cancel(ctx, id); err != nil {
			f.Logger.Warn("Could not withdraw reminder",
				zap.String("appointment_id", id.String()), zap.Error(err))
		}
	}
	f.notify(ctx, "cancellation notice", appt, f.notifier().SendCancellationNotice)
	return nil
}

// RequestStatusChange asks the server to move id to status and echoes the
// change once the server accepts it. Cancellation goes through
// CancelAppointment so the reminder is withdrawn as well.
func (f *AppointmentFlow) RequestStatusChange(ctx context.Context, id models.AppointmentID, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, &ValidationError{Fields: []FieldError{{Field: "status", Message: "is not a known status"}}}
	}
	if status == models.StatusCancelled {
		if err := f.CancelAppointment(ctx, id); err != nil {
			return nil, err
		}
		appt, _ := f.find(id)
		return &appt, nil
	}

	appt, ok := f.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}

	f.begin()
	updated, err := f.Remote.UpdateStatus(ctx, id, status)
	if err != nil {
		f.fail(ctx, "update status", err)
		return nil, err
	}
	if updated != nil {
		if updated.PaymentID == "" {
			updated.PaymentID = appt.PaymentID
		}
		appt = *updated
	}
	appt.Status = status
	f.Store.DispatchIfAlive(ctx, state.UpdateAppointment{Appointment: appt})
	f.end()
	return &appt, nil
}

// RefreshAppointments replaces the stored list with the server's.
func (f *AppointmentFlow) RefreshAppointments(ctx context.Context, status models.AppointmentStatus) ([]models.Appointment, error) {
	f.begin()
	list, err := f.Remote.ListAppointments(ctx, status)
	if err != nil {
		f.fail(ctx, "refresh appointments", err)
		return nil, err
	}
	f.Store.DispatchIfAlive(ctx, state.SetAppointments{Appointments: list})
	f.end()
	return list, nil
}

// UpdateDraft replaces the current draft. A nil draft clears it.
func (f *AppointmentFlow) UpdateDraft(draft *models.BookingDraft) {
	f.Store.Dispatch(state.SetCurrentBooking{Draft: draft})
}

// ApplyDraftPatch merges patch into the current draft and returns it.
func (f *AppointmentFlow) ApplyDraftPatch(patch models.DraftPatch) models.BookingDraft {
	var current models.BookingDraft
	if d := f.Store.Snapshot().CurrentBooking; d != nil {
		current = *d
	}
	next := patch.Apply(current)
	f.Store.Dispatch(state.SetCurrentBooking{Draft: &next})
	return next
}

func (f *AppointmentFlow) find(id models.AppointmentID) (models.Appointment, bool) {
	for _, a := range f.Store.Snapshot().Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return models.Appointment{}, false
}

func (f *AppointmentFlow) scheduleReminder(ctx context.Context, appt models.Appointment) {
	if f.Reminders == nil {
		return
	}
	if err := f.Reminders.Schedule(ctx, appt); err != nil {
		f.Logger.Warn("Could not schedule reminder",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
	}
}

// notifier returns the configured Notifier, or one that sends nothing.
func (f *AppointmentFlow) notifier() Notifier {
	if f.Notifier == nil {
		return silentNotifier{}
	}
	return f.Notifier
}

// notify sends one customer message. Delivery problems never undo the
// booking change that triggered them.
func (f *AppointmentFlow) notify(ctx context.Context, kind string, appt models.Appointment,
	send func(context.Context, models.Appointment) error) {
	if err := send(ctx, appt); err != nil {
		f.Logger.Warn("Could not send "+kind,
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
	}
}

type silentNotifier struct{}

func (silentNotifier) SendBookingConfirmation(context.Context, models.Appointment) error { return nil }
func (silentNotifier) SendCancellationNotice(context.Context, models.Appointment) error { return nil }

func (f *AppointmentFlow) begin() {
	f.Store.Dispatch(state.ClearError{})
	f.Store.Dispatch(state.SetLoading{Loading: true})
}

// end clears the loading flag. It tracks the operation, not its result,
// so it is dispatched even when the caller's context is gone.
func (f *AppointmentFlow) end() {
	f.Store.Dispatch(state.SetLoading{Loading: false})
}

// fail records err in the store unless it is a validation error, which
// belongs to the form rather than the global error flag.
func (f *AppointmentFlow) fail(ctx context.Context, op string, err error) {
	f.Logger.Error("Operation failed", zap.String("op", op), zap.Error(err))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		f.Store.DispatchIfAlive(ctx, state.SetError{Message: DescribeError(err)})
	}
	f.end()
}

// DescribeError turns err into a message fit for the user.
func DescribeError(err error) string {
	var (
		verr      *ValidationError
		conflict  *BookingConflictError
		slots     *SlotsUnavailableError
		declined  *payment.PaymentDeclinedError
		authFail  *payment.AuthorizationRequestFailedError
		transient *remote.TransientNetworkError
	)
	switch {
	case errors.As(err, &verr):
		return "Please correct the highlighted fields."
	case errors.As(err, &conflict):
		return "The selected time has just been booked by someone else. Please choose another slot."
	case errors.As(err, &declined):
		return declined.Message
	case errors.As(err, &slots):
		return "Could not load the available times. Please try again."
	case errors.As(err, &authFail):
		return "Could not start the payment. Please try again."
	case errors.As(err, &transient):
		return "Network error. Please check your connection and try again."
	case errors.Is(err, payment.ErrAlreadySucceeded):
		return "This appointment has already been paid."
	case errors.Is(err, payment.ErrAttemptInFlight), errors.Is(err, payment.ErrRedirectPending):
		return "A payment for this appointment is already in progress."
	case errors.Is(err, payment.ErrPrepaymentNotRequired):
		return "This appointment does not require an online payment."
	case errors.Is(err, payment.ErrHandleResolved):
		return "This payment has already been completed."
	case errors.Is(err, remote.ErrNotFound):
		return "The appointment no longer exists."
	default:
		return "Something went wrong. Please try again."
	}
}
