package state

import "metisconnect/models"

// Transition is the closed set of named state changes. Each kind reduces
// the current state to the next one without touching anything external.
type Transition interface {
	Name() string
	reduce(State) State
}

type SetLoading struct{ Loading bool }

type SetError struct{ Message string }

type ClearError struct{}

type SetAppointments struct{ Appointments []models.Appointment }

type AddAppointment struct{ Appointment models.Appointment }

// UpdateAppointment replaces the entry whose ID matches. Unknown ids are
// a no-op.
type UpdateAppointment struct{ Appointment models.Appointment }

// SetCurrentBooking with a nil Draft discards the draft.
type SetCurrentBooking struct{ Draft *models.BookingDraft }

type SetAvailableSlots struct{ Slots []models.TimeSlot }

type SetVoiceSupported struct{ Supported bool }

func (SetLoading) Name() string { return "set-loading" }
func (SetError) Name() string { return "set-error" }
func (ClearError) Name() string { return "clear-error" }
func (SetAppointments) Name() string { return "set-appointments" }
func (AddAppointment) Name() string { return "add-appointment" }
func (UpdateAppointment) Name() string { return "update-appointment-by-id" }
func (SetCurrentBooking) Name() string { return "set-current-booking" }
func (SetAvailableSlots) Name() string { return "set-available-slots" }
func (SetVoiceSupported) Name() string { return "set-voice-supported" }

func (t SetLoading) reduce(s State) State {
	s.Loading = t.Loading
	return s
}

// SetError also clears loading: an error always ends the operation.
func (t SetError) reduce(s State) State {
	s.Error = t.Message
	s.Loading = false
	return s
}

func (ClearError) reduce(s State) State {
	s.Error = ""
	return s
}

func (t SetAppointments) reduce(s State) State {
	s.Appointments = cloneAppointments(t.Appointments)
	return s
}

func (t AddAppointment) reduce(s State) State {
	next := make([]models.Appointment, len(s.Appointments), len(s.Appointments)+1)
	copy(next, s.Appointments)
	s.Appointments = append(next, t.Appointment)
	return s
}

func (t UpdateAppointment) reduce(s State) State {
	idx := -1
	for i, a := range s.Appointments {
		if a.ID == t.Appointment.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	next := cloneAppointments(s.Appointments)
	next[idx] = t.Appointment
	s.Appointments = next
	return s
}

func (t SetCurrentBooking) reduce(s State) State {
	if t.Draft == nil {
		s.CurrentBooking = nil
		return s
	}
	d := *t.Draft
	s.CurrentBooking = &d
	return s
}

func (t SetAvailableSlots) reduce(s State) State {
	s.AvailableSlots = append([]models.TimeSlot(nil), t.Slots...)
	return s
}

func (t SetVoiceSupported) reduce(s State) State {
	s.VoiceSupported = t.Supported
	return s
}

func cloneAppointments(in []models.Appointment) []models.Appointment {
	if in == nil {
		return []models.Appointment{}
	}
	return append(make([]models.Appointment, 0, len(in)), in...)
}
