package models

import "time"

// TimeSlot is produced fresh per availability query and never mutated.
type TimeSlot struct {
	StartInstant time.Time `json:"startInstant"`
	EndInstant   time.Time `json:"endInstant,omitzero"`
	IsAvailable  bool      `json:"isAvailable"`
}

// AvailabilityResponse mirrors GET /appointments/availability.
type AvailabilityResponse struct {
	AvailableSlots []RemoteSlot `json:"available_slots"`
	TotalSlots     int          `json:"total_slots"`
}

// RemoteSlot keeps timestamps as strings: the booking API emits naive
// local datetimes as well as RFC 3339.
type RemoteSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	Available bool   `json:"available"`
}
