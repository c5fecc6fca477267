package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"metisconnect/models"

	"go.uber.org/zap"
)

// AvailabilitySource is the slice of the remote client the resolver needs.
type AvailabilitySource interface {
	GetAvailability(ctx context.Context, start, end time.Time, durationMinutes int) ([]models.RemoteSlot, error)
}

// clockTime is a wall-clock time of day, e.g. 09:00.
type clockTime struct {
	hour, minute int
}

// BusinessHours is the daily opening window in the business timezone.
type BusinessHours struct {
	Location *time.Location
	open     clockTime
	close    clockTime
}

// ParseBusinessHours builds the opening window from config values.
func ParseBusinessHours(timezone, open, close string) (BusinessHours, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("load business timezone %q: %w", timezone, err)
	}
	o, err := parseClock(open)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("business open: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("business close: %w", err)
	}
	if c.hour*60+c.minute <= o.hour*60+o.minute {
		return BusinessHours{}, fmt.Errorf("business close %s must be after open %s", close, open)
	}
	return BusinessHours{Location: loc, open: o, close: c}, nil
}

func parseClock(s string) (clockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return clockTime{}, fmt.Errorf("invalid time of day %q", s)
	}
	return clockTime{hour: t.Hour(), minute: t.Minute()}, nil
}

// Window returns the opening and closing instants of date's calendar day.
func (h BusinessHours) Window(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(h.Location).Date()
	start := time.Date(y, m, d, h.open.hour, h.open.minute, 0, 0, h.Location)
	end := time.Date(y, m, d, h.close.hour, h.close.minute, 0, 0, h.Location)
	return start, end
}

// AvailabilityResolver answers which start instants can be booked for a day.
type AvailabilityResolver struct {
	source AvailabilitySource
	hours  BusinessHours
	now    func() time.Time
	logger *zap.Logger
}

func NewAvailabilityResolver(source AvailabilitySource, hours BusinessHours, logger *zap.Logger) *AvailabilityResolver {
	return &AvailabilityResolver{
		source: source,
		hours:  hours,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the resolver's notion of now. Used by tests.
func (r *AvailabilityResolver) WithClock(now func() time.Time) *AvailabilityResolver {
	r.now = now
	return r
}

// Location is the business timezone.
func (r *AvailabilityResolver) Location() *time.Location {
	return r.hours.Location
}

// GetAvailableSlots lists the bookable slots of date's calendar day.
// An empty day yields an empty slice and no error.
func (r *AvailabilityResolver) GetAvailableSlots(ctx context.Context, date time.Time, durationMinutes int) ([]models.TimeSlot, error) {
	if durationMinutes <= 0 || !KnownDuration(durationMinutes) {
		return nil, fmt.Errorf("%w: %d minutes", ErrUnknownDuration, durationMinutes)
	}

	start, end := r.hours.Window(date)
	day := start.Format("2006-01-02")

	remoteSlots, err := r.source.GetAvailability(ctx, start, end, durationMinutes)
	if err != nil {
		r.logger.Warn("Availability query failed", zap.String("date", day), zap.Error(err))
		return nil, &SlotsUnavailableError{Date: day, Err: err}
	}

	now := r.now()
	length := time.Duration(durationMinutes) * time.Minute
	seen := make(map[int64]bool, len(remoteSlots))
	slots := make([]models.TimeSlot, 0, len(remoteSlots))
	for _, rs := range remoteSlots {
		if !rs.Available {
			continue
		}
		at, err := models.ParseFlexibleTime(rs.StartTime, r.hours.Location)
		if err != nil {
			r.logger.Warn("Skipping slot with unreadable start", zap.String("start_time", rs.StartTime), zap.Error(err))
			continue
		}
		if at.Before(start) || at.Add(length).After(end) || !at.After(now) {
			continue
		}
		if seen[at.Unix()] {
			continue
		}
		seen[at.Unix()] = true

		slot := models.TimeSlot{StartInstant: at, IsAvailable: true}
		if rs.EndTime != "" {
			if endAt, err := models.ParseFlexibleTime(rs.EndTime, r.hours.Location); err == nil {
				slot.EndInstant = endAt
			}
		}
		if slot.EndInstant.IsZero() {
			slot.EndInstant = at.Add(length)
		}
		slots = append(slots, slot)
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartInstant.Before(slots[j].StartInstant)
	})

	r.logger.Debug("Resolved availability",
		zap.String("date", day),
		zap.Int("duration_minutes", durationMinutes),
		zap.Int("remote", len(remoteSlots)),
		zap.Int("available", len(slots)))
	return slots, nil
}

// IsBookable re-queries instant's day and reports whether instant is still
// offered as a start time.
func (r *AvailabilityResolver) IsBookable(ctx context.Context, instant time.Time, durationMinutes int) (bool, error) {
	slots, err := r.GetAvailableSlots(ctx, instant, durationMinutes)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.StartInstant.Equal(instant) {
			return true, nil
		}
	}
	return false, nil
}
