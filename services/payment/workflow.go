package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"metisconnect/models"
	"metisconnect/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase of a payment attempt.
type Phase string

const (
	PhaseNotStarted               Phase = "not_started"
	PhaseAuthorizationRequested   Phase = "authorization_requested"
	PhaseAwaitingConfirmation     Phase = "awaiting_confirmation"
	PhaseSucceeded                Phase = "succeeded"
	PhaseFailed                   Phase = "failed"
	PhaseRequiresExternalRedirect Phase = "requires_external_redirect"
)

// allowedTransitions is the complete phase graph. Anything else is refused.
var allowedTransitions = map[Phase][]Phase{
	PhaseNotStarted:             {PhaseAuthorizationRequested},
	PhaseAuthorizationRequested: {PhaseAwaitingConfirmation},
	PhaseAwaitingConfirmation: {
		PhaseSucceeded,
		PhaseFailed,
		PhaseRequiresExternalRedirect,
		// the processor call failed without reporting an outcome
		PhaseAuthorizationRequested,
	},
	PhaseRequiresExternalRedirect: {PhaseSucceeded, PhaseFailed},
}

func canTransition(from, to Phase) bool {
	for _, p := range allowedTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

func (p Phase) terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

type attempt struct {
	phase       Phase
	record      models.PaymentAttempt
	appointment models.Appointment
}

func (a *attempt) moveTo(next Phase) error {
	if !canTransition(a.phase, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.phase, next)
	}
	a.phase = next
	return nil
}

// Workflow drives at most one payment attempt per appointment.
type Workflow struct {
	processor Processor
	handles   HandleStore
	returnURL string
	logger    *zap.Logger
	newKey    func() string
	now       func() time.Time

	mu       sync.Mutex
	attempts map[models.AppointmentID]*attempt
}

func NewWorkflow(processor Processor, handles HandleStore, returnURL string, logger *zap.Logger) *Workflow {
	return &Workflow{
		processor: processor,
		handles:   handles,
		returnURL: returnURL,
		logger:    logger,
		newKey:    uuid.NewString,
		now:       time.Now,
		attempts:  make(map[models.AppointmentID]*attempt),
	}
}

// Phase reports the current phase for id.
func (w *Workflow) Phase(id models.AppointmentID) Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	if a, ok := w.attempts[id]; ok {
		return a.phase
	}
	return PhaseNotStarted
}

// Start requests an authorization handle for appt. An attempt that already
// holds a handle is returned as is.
func (w *Workflow) Start(ctx context.Context, appt models.Appointment) (*models.PaymentAttempt, error) {
	if !appt.RequiresPrepayment {
		return nil, ErrPrepaymentNotRequired
	}
	if appt.Status == models.StatusConfirmed && appt.PaymentID != "" {
		return nil, ErrAlreadySucceeded
	}

	w.mu.Lock()
	if a, ok := w.attempts[appt.ID]; ok {
		switch a.phase {
		case PhaseAuthorizationRequested:
			if a.record.AuthorizationHandle == "" {
				w.mu.Unlock()
				return nil, ErrAttemptInFlight
			}
			rec := a.record
			w.mu.Unlock()
			return &rec, nil
		case PhaseAwaitingConfirmation:
			w.mu.Unlock()
			return nil, ErrAttemptInFlight
		case PhaseRequiresExternalRedirect:
			w.mu.Unlock()
			return nil, ErrRedirectPending
		case PhaseSucceeded:
			w.mu.Unlock()
			return nil, ErrAlreadySucceeded
		}
		// A failed attempt is replaced by a fresh one.
	}

	a := &attempt{
		phase:       PhaseNotStarted,
		appointment: appt,
		record: models.PaymentAttempt{
			AppointmentID: appt.ID,
			Amount:        appt.ServicePrice,
			Currency:      models.CurrencyEUR,
			Outcome:       models.OutcomePending,
		},
	}
	if err := a.moveTo(PhaseAuthorizationRequested); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.attempts[appt.ID] = a
	w.mu.Unlock()

	auth, err := w.processor.RequestAuthorization(ctx, AuthorizationRequest{
		AppointmentID:  appt.ID,
		Amount:         appt.ServicePrice,
		Currency:       models.CurrencyEUR,
		Description:    fmt.Sprintf("Appointment %s - %s", appt.ID, appt.ServiceType),
		ReceiptEmail:   appt.CustomerEmail,
		IdempotencyKey: w.newKey(),
	})
	if err != nil {
		w.mu.Lock()
		if w.attempts[appt.ID] == a {
			delete(w.attempts, appt.ID)
		}
		w.mu.Unlock()
		w.logger.Error("Payment authorization request failed",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
		return nil, &AuthorizationRequestFailedError{Err: err}
	}

	w.mu.Lock()
	a.record.AuthorizationHandle = auth.Handle
	a.record.ClientSecret = auth.ClientSecret
	rec := a.record
	w.mu.Unlock()

	if err := w.handles.Save(ctx, HandleRecord{
		Handle:      auth.Handle,
		Appointment: appt,
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		Outcome:     models.OutcomePending,
		UpdatedAt:   w.now(),
	}); err != nil {
		// Confirmation still works in this process; only Resume is lost.
		w.logger.Warn("Could not persist authorization handle",
			zap.String("handle", auth.Handle), zap.Error(err))
	}

	w.logger.Info("Payment authorization requested",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("handle", auth.Handle),
		zap.Float64("amount", rec.Amount))
	return &rec, nil
}

// Confirm issues exactly one confirmation for the appointment's handle.
func (w *Workflow) Confirm(ctx context.Context, id models.AppointmentID, billing models.BillingDetails) (*Result, error) {
	w.mu.Lock()
	a, ok := w.attempts[id]
	if !ok {
		w.mu.Unlock()
		return nil, ErrNotStarted
	}
	switch {
	case a.phase.terminal():
		w.mu.Unlock()
		return nil, ErrHandleResolved
	case a.phase == PhaseRequiresExternalRedirect:
		w.mu.Unlock()
		return nil, ErrRedirectPending
	case a.phase != PhaseAuthorizationRequested || a.record.AuthorizationHandle == "":
		w.mu.Unlock()
		return nil, ErrAttemptInFlight
	}
	if err := a.moveTo(PhaseAwaitingConfirmation); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	handle := a.record.AuthorizationHandle
	w.mu.Unlock()

	if rec, err := w.handles.Get(ctx, handle); err == nil && rec.Outcome.Terminal() {
		w.mu.Lock()
		_ = a.moveTo(PhaseAuthorizationRequested)
		w.mu.Unlock()
		return nil, ErrHandleResolved
	}

	res, err := w.processor.Confirm(ctx, ConfirmRequest{
		Handle:    handle,
		Billing:   billing,
		ReturnURL: w.returnURL,
	})
	if err != nil {
		w.mu.Lock()
		_ = a.moveTo(PhaseAuthorizationRequested)
		w.mu.Unlock()
		w.logger.Error("Payment confirmation failed without outcome",
			zap.String("handle", handle), zap.Error(err))
		return nil, fmt.Errorf("confirm payment %s: %w", handle, err)
	}

	return w.finish(ctx, a, handle, res)
}

// Resume resolves a handle after the external authorization step. It is
// safe to call repeatedly; resolved handles are answered from the store.
func (w *Workflow) Resume(ctx context.Context, handle string) (*Result, error) {
	rec, err := w.handles.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	if rec.Outcome.Terminal() {
		return recordResult(rec)
	}

	res, err := w.processor.Lookup(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("look up payment %s: %w", handle, err)
	}

	w.mu.Lock()
	a, ok := w.attempts[rec.Appointment.ID]
	if !ok || a.record.AuthorizationHandle != handle {
		// Started by another process: track it here from now on.
		a = &attempt{
			phase:       PhaseRequiresExternalRedirect,
			appointment: rec.Appointment,
			record: models.PaymentAttempt{
				AppointmentID:       rec.Appointment.ID,
				Amount:              rec.Amount,
				Currency:            rec.Currency,
				AuthorizationHandle: handle,
				Outcome:             rec.Outcome,
			},
		}
		w.attempts[rec.Appointment.ID] = a
	}
	if a.phase == PhaseAuthorizationRequested {
		// Confirmed outside this process, e.g. directly by the card element.
		_ = a.moveTo(PhaseAwaitingConfirmation)
	}
	w.mu.Unlock()

	if !res.Outcome.Terminal() {
		w.mu.Lock()
		if a.phase == PhaseAwaitingConfirmation {
			_ = a.moveTo(PhaseRequiresExternalRedirect)
		}
		a.record.Outcome = res.Outcome
		a.record.RedirectURL = res.RedirectURL
		out := &Result{Phase: a.phase, Attempt: a.record, Appointment: a.appointment}
		w.mu.Unlock()
		return out, nil
	}
	return w.finish(ctx, a, handle, res)
}

// finish records a processor outcome on a and persists terminal ones.
func (w *Workflow) finish(ctx context.Context, a *attempt, handle string, res *ProcessorResult) (*Result, error) {
	next := PhaseRequiresExternalRedirect
	switch res.Outcome {
	case models.OutcomeSucceeded:
		next = PhaseSucceeded
	case models.OutcomeFailed:
		next = PhaseFailed
	}

	w.mu.Lock()
	if a.phase != next {
		if err := a.moveTo(next); err != nil {
			w.mu.Unlock()
			return nil, err
		}
	}
	a.record.Outcome = res.Outcome
	a.record.Message = res.Message
	a.record.RedirectURL = res.RedirectURL
	out := &Result{Phase: a.phase, Attempt: a.record, Appointment: a.appointment}
	w.mu.Unlock()

	utils.PaymentOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	w.logger.Info("Payment outcome",
		zap.String("appointment_id", out.Appointment.ID.String()),
		zap.String("handle", handle),
		zap.String("outcome", string(res.Outcome)))

	if err := w.handles.Save(ctx, HandleRecord{
		Handle:      handle,
		Appointment: out.Appointment,
		Amount:      out.Attempt.Amount,
		Currency:    out.Attempt.Currency,
		Outcome:     res.Outcome,
		Message:     res.Message,
		UpdatedAt:   w.now(),
	}); err != nil {
		w.logger.Warn("Could not persist payment outcome", zap.String("handle", handle), zap.Error(err))
	}

	if res.Outcome == models.OutcomeFailed {
		return nil, &PaymentDeclinedError{Handle: handle, Message: res.Message}
	}
	return out, nil
}

func recordResult(rec *HandleRecord) (*Result, error) {
	if rec.Outcome == models.OutcomeFailed {
		return nil, &PaymentDeclinedError{Handle: rec.Handle, Message: rec.Message}
	}
	return &Result{
		Phase: PhaseSucceeded,
		Attempt: models.PaymentAttempt{
			AppointmentID:       rec.Appointment.ID,
			Amount:              rec.Amount,
			Currency:            rec.Currency,
			AuthorizationHandle: rec.Handle,
			Outcome:             rec.Outcome,
		},
		Appointment: rec.Appointment,
	}, nil
}

// IsDecline reports whether err is a processor decline.
func IsDecline(err error) (*PaymentDeclinedError, bool) {
	var d *PaymentDeclinedError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
