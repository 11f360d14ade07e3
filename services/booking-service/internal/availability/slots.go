package availability

import (
	"errors"
	"time"
)

var (
	ErrInvalidDuration      = errors.New("availability: duration must be positive")
	ErrInvalidBusinessHours = errors.New("availability: open time must precede close time")
)

// DefaultGranularity is the candidate slot spacing in minutes when the business
// has not configured one.
const DefaultGranularity = 30

type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether two half-open intervals [Start,End) intersect.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// BusinessHours describes a single daily working window. OpenDays holds
// three-letter weekday codes ("Mon".."Sun").
type BusinessHours struct {
	OpenDays []string
	Open     TimeOfDay
	Close    TimeOfDay
}

func (h BusinessHours) OpenOn(weekday time.Weekday) bool {
	code := weekday.String()[:3]
	for _, d := range h.OpenDays {
		if d == code {
			return true
		}
	}
	return false
}

// Slots returns the start times on date where a booking of durationMinutes
// fits inside business hours without overlapping any busy interval. Candidates
// are spaced granularity minutes apart starting at opening time; a candidate t
// is kept only if t+duration <= close. The result is ascending and freshly
// allocated on every call.
func Slots(date string, durationMinutes int, hours BusinessHours, busy []Interval, granularity int) ([]TimeOfDay, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if hours.Open >= hours.Close {
		return nil, ErrInvalidBusinessHours
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if !hours.OpenOn(day.Weekday()) {
		return nil, nil
	}
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	duration := TimeOfDay(durationMinutes)
	var slots []TimeOfDay
	for t := hours.Open; t+duration <= hours.Close; t += TimeOfDay(granularity) {
		if !overlapsAny(Interval{Start: t, End: t + duration}, busy) {
			slots = append(slots, t)
		}
	}
	return slots, nil
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
