package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// LocalZone is the zone assumed for datetimes that carry no offset. The
// booking API stores naive business-local times.
var LocalZone = time.UTC

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseFlexibleTime accepts RFC 3339 and zone-less datetimes; the latter
// are read in loc.
func ParseFlexibleTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// UnmarshalJSON reads appointment_datetime and created_at leniently.
func (a *Appointment) UnmarshalJSON(b []byte) error {
	type plain Appointment
	aux := struct {
		*plain
		AppointmentDatetime string  `json:"appointment_datetime"`
		CreatedAt           *string `json:"created_at,omitempty"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.AppointmentDatetime != "" {
		t, err := ParseFlexibleTime(aux.AppointmentDatetime, LocalZone)
		if err != nil {
			return fmt.Errorf("appointment_datetime: %w", err)
		}
		a.AppointmentDatetime = t
	}
	if aux.CreatedAt != nil && *aux.CreatedAt != "" {
		t, err := ParseFlexibleTime(*aux.CreatedAt, LocalZone)
		if err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		a.CreatedAt = &t
	}
	return nil
}
