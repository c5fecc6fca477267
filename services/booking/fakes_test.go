package booking

import (
	"context"
	"sync"
	"time"
	_ "time/tzdata"

	"metisconnect/models"
)

var rome, _ = time.LoadLocation("Europe/Rome")

// fixedNow is Monday 10 March 2025, 08:00 in Rome.
var fixedNow = time.Date(2025, time.March, 10, 8, 0, 0, 0, rome)

func clock() time.Time { return fixedNow }

type fakeSource struct {
	mu    sync.Mutex
	slots []models.RemoteSlot
	err   error
	calls int
}

func (f *fakeSource) GetAvailability(_ context.Context, _, _ time.Time, _ int) ([]models.RemoteSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.RemoteSlot(nil), f.slots...), nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCreator struct {
	err  error
	reqs []models.CreateAppointmentRequest
}

func (f *fakeCreator) CreateAppointment(_ context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Appointment{
		ID:                  "101",
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		CustomerEmail:       req.CustomerEmail,
		AppointmentDatetime: req.AppointmentDatetime,
		ServiceType:         req.ServiceType,
		ServiceDuration:     req.ServiceDuration,
		ServicePrice:        req.ServicePrice,
		RequiresPrepayment:  req.RequiresPrepayment,
		Status:              models.StatusPending,
	}, nil
}

func mustHours() BusinessHours {
	h, err := ParseBusinessHours("Europe/Rome", "09:00", "18:00")
	if err != nil {
		panic(err)
	}
	return h
}

func slot(start string, available bool) models.RemoteSlot {
	return models.RemoteSlot{StartTime: start, Available: available}
}

func validDraft() models.BookingDraft {
	return models.BookingDraft{
		CustomerName:  "Mario Rossi",
		CustomerPhone: "+39 333 123 4567",
		CustomerEmail: "mario@example.com",
		ServiceCode:   "haircut",
		Date:          "2025-03-11",
		Time:          "10:00",
	}
}
