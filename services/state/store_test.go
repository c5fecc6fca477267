package state

import (
	"context"
	"sync"
	"testing"

	"metisconnect/models"
)

func appt(id string, status models.AppointmentStatus) models.Appointment {
	return models.Appointment{ID: models.AppointmentID(id), CustomerName: "Mario Rossi", Status: status}
}

func TestInitialState(t *testing.T) {
	s := NewMemoryStore(nil).Snapshot()
	if len(s.Appointments) != 0 || len(s.AvailableSlots) != 0 {
		t.Fatalf("expected empty collections, got %d appointments and %d slots", len(s.Appointments), len(s.AvailableSlots))
	}
	if s.CurrentBooking != nil || s.Loading || s.Error != "" || s.VoiceSupported {
		t.Fatalf("expected zero state, got %+v", s)
	}
}

func TestUpdateUnknownIDIsNoOp(t *testing.T) {
	store := NewMemoryStore(nil)
	store.Dispatch(SetAppointments{Appointments: []models.Appointment{appt("1", models.StatusPending)}})
	before := store.Snapshot()

	store.Dispatch(UpdateAppointment{Appointment: appt("42", models.StatusConfirmed)})

	after := store.Snapshot()
	if len(after.Appointments) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(after.Appointments))
	}
	if after.Appointments[0] != before.Appointments[0] {
		t.Fatalf("expected appointment untouched, got %+v", after.Appointments[0])
	}
}

func TestUpdateReplacesMatchingAppointment(t *testing.T) {
	store := NewMemoryStore(nil)
	store.Dispatch(AddAppointment{Appointment: appt("1", models.StatusPending)})
	store.Dispatch(AddAppointment{Appointment: appt("2", models.StatusPending)})

	store.Dispatch(UpdateAppointment{Appointment: appt("2", models.StatusConfirmed)})

	got := store.Snapshot().Appointments
	if got[0].Status != models.StatusPending || got[1].Status != models.StatusConfirmed {
		t.Fatalf("expected [pending confirmed], got [%s %s]", got[0].Status, got[1].Status)
	}
}

func TestSetErrorClearsLoading(t *testing.T) {
	store := NewMemoryStore(nil)
	store.Dispatch(SetLoading{Loading: true})
	store.Dispatch(SetError{Message: "boom"})

	s := store.Snapshot()
	if s.Loading {
		t.Fatal("expected loading cleared")
	}
	if s.Error != "boom" {
		t.Fatalf("expected error boom, got %q", s.Error)
	}

	store.Dispatch(ClearError{})
	if msg := store.Snapshot().Error; msg != "" {
		t.Fatalf("expected error cleared, got %q", msg)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	store := NewMemoryStore(nil)
	draft := models.BookingDraft{CustomerName: "Anna"}
	store.Dispatch(SetCurrentBooking{Draft: &draft})
	store.Dispatch(AddAppointment{Appointment: appt("1", models.StatusPending)})

	draft.CustomerName = "changed by caller"
	snap := store.Snapshot()
	snap.Appointments[0].Status = models.StatusCancelled
	snap.CurrentBooking.CustomerName = "changed by reader"

	again := store.Snapshot()
	if again.CurrentBooking.CustomerName != "Anna" {
		t.Fatalf("expected draft Anna, got %q", again.CurrentBooking.CustomerName)
	}
	if again.Appointments[0].Status != models.StatusPending {
		t.Fatalf("expected stored status pending, got %s", again.Appointments[0].Status)
	}
}

func TestSetCurrentBookingNilClears(t *testing.T) {
	store := NewMemoryStore(nil)
	store.Dispatch(SetCurrentBooking{Draft: &models.BookingDraft{CustomerName: "Anna"}})
	store.Dispatch(SetCurrentBooking{Draft: nil})
	if store.Snapshot().CurrentBooking != nil {
		t.Fatal("expected draft cleared")
	}
}

func TestDispatchIfAliveDropsCancelledContext(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if store.DispatchIfAlive(ctx, SetLoading{Loading: true}) {
		t.Fatal("expected transition to be discarded")
	}
	if store.Snapshot().Loading {
		t.Fatal("expected loading untouched")
	}
	if !store.DispatchIfAlive(context.Background(), SetLoading{Loading: true}) {
		t.Fatal("expected transition to be applied")
	}
}

func TestSubscribeSeesEveryTransitionInOrder(t *testing.T) {
	store := NewMemoryStore(nil)
	var seen []int
	unsubscribe := store.Subscribe(func(s State) {
		seen = append(seen, len(s.Appointments))
	})

	for i := 0; i < 3; i++ {
		store.Dispatch(AddAppointment{Appointment: appt(string(rune('a'+i)), models.StatusPending)})
	}
	unsubscribe()
	store.Dispatch(AddAppointment{Appointment: appt("z", models.StatusPending)})

	want := []int{1, 2, 3}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d: expected %d appointments, got %d", i, want[i], seen[i])
		}
	}
}

func TestConcurrentDispatch(t *testing.T) {
	store := NewMemoryStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Dispatch(AddAppointment{Appointment: appt(string(rune('A'+i)), models.StatusPending)})
			_ = store.Snapshot()
		}(i)
	}
	wg.Wait()

	if n := len(store.Snapshot().Appointments); n != 50 {
		t.Fatalf("expected 50 appointments, got %d", n)
	}
}

func TestConcurrentDispatchNotifiesInTransitionOrder(t *testing.T) {
	store := NewMemoryStore(nil)
	var (
		mu   sync.Mutex
		seen []int
	)
	store.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, len(s.Appointments))
		mu.Unlock()
	})

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Dispatch(AddAppointment{Appointment: appt(string(rune(0x100+i)), models.StatusPending)})
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != n {
		t.Fatalf("expected %d notifications, got %d", n, len(seen))
	}
	for i, count := range seen {
		if count != i+1 {
			t.Fatalf("notification %d saw %d appointments, expected %d", i, count, i+1)
		}
	}
}

func TestListenerMayDispatch(t *testing.T) {
	store := NewMemoryStore(nil)
	var messages []string
	store.Subscribe(func(s State) {
		messages = append(messages, s.Error)
		if s.Error == "first" {
			store.Dispatch(SetError{Message: "second"})
		}
	})

	store.Dispatch(SetError{Message: "first"})

	if len(messages) != 2 || messages[0] != "first" || messages[1] != "second" {
		t.Fatalf("expected [first second], got %v", messages)
	}
	if got := store.Snapshot().Error; got != "second" {
		t.Fatalf("expected final error second, got %q", got)
	}
}
