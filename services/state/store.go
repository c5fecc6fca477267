// Package state holds the process-wide application state. All writes go
// through Dispatch; readers get deep copies from Snapshot.
package state

import (
	"context"
	"sync"

	"metisconnect/models"

	"go.uber.org/zap"
)

// State is what every UI surface reads.
type State struct {
	Appointments   []models.Appointment `json:"appointments"`
	CurrentBooking *models.BookingDraft `json:"currentBooking"`
	AvailableSlots []models.TimeSlot    `json:"availableSlots"`
	Loading        bool                 `json:"loading"`
	Error          string               `json:"error"`
	VoiceSupported bool                 `json:"voiceSupported"`
}

// Initial is the state at process start.
func Initial() State {
	return State{
		Appointments:   []models.Appointment{},
		AvailableSlots: []models.TimeSlot{},
	}
}

// Store is single-writer-via-transition, many-readers.
type Store interface {
	Dispatch(t Transition)
	DispatchIfAlive(ctx context.Context, t Transition) bool
	Snapshot() State
	Subscribe(fn func(State)) (unsubscribe func())
}

// MemoryStore is the only Store implementation; the state is never
// persisted.
type MemoryStore struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
	logger    *zap.Logger

	// pending holds snapshots not yet delivered to listeners, in
	// transition order. Only the goroutine that set draining delivers.
	pending  []State
	draining bool
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		state:     Initial(),
		listeners: make(map[int]func(State)),
		logger:    logger,
	}
}

// Dispatch applies t under the store lock, so transitions are applied in
// the order they are dispatched. Listeners run outside the lock and see
// snapshots in that same order; a listener may itself dispatch.
func (s *MemoryStore) Dispatch(t Transition) {
	s.mu.Lock()
	s.state = t.reduce(s.state)
	if len(s.listeners) > 0 {
		s.pending = append(s.pending, s.state.clone())
	}
	deliver := !s.draining && len(s.pending) > 0
	if deliver {
		s.draining = true
	}
	s.mu.Unlock()

	s.logger.Debug("state transition", zap.String("transition", t.Name()))
	if deliver {
		s.drain()
	}
}

// drain delivers pending snapshots until none are left. Snapshots queued
// by other goroutines meanwhile are delivered here too.
func (s *MemoryStore) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		snap := s.pending[0]
		s.pending = s.pending[1:]
		listeners := make([]func(State), 0, len(s.listeners))
		for _, fn := range s.listeners {
			listeners = append(listeners, fn)
		}
		s.mu.Unlock()

		for _, fn := range listeners {
			fn(snap)
		}
	}
}

// DispatchIfAlive drops t when the context that produced it is done, so a
// result arriving after its caller went away is discarded.
func (s *MemoryStore) DispatchIfAlive(ctx context.Context, t Transition) bool {
	if ctx.Err() != nil {
		s.logger.Debug("discarding transition from dead context",
			zap.String("transition", t.Name()), zap.Error(ctx.Err()))
		return false
	}
	s.Dispatch(t)
	return true
}

func (s *MemoryStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *MemoryStore) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (st State) clone() State {
	out := st
	out.Appointments = cloneAppointments(st.Appointments)
	out.AvailableSlots = append([]models.TimeSlot{}, st.AvailableSlots...)
	if st.CurrentBooking != nil {
		d := *st.CurrentBooking
		out.CurrentBooking = &d
	}
	return out
}
