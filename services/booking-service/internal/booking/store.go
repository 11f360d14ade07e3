package booking

import (
	"context"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
)

// Store persists appointments and clients. Implementations must make
// CreateAppointment and UpdateAppointment atomic with respect to slot
// conflicts: when the written interval would overlap a blocking appointment
// of the same business on the same date, the write fails with
// ErrSlotConflict and nothing is persisted.
type Store interface {
	// CreateAppointment resolves the client (matching an existing one by
	// phone first, then by case-insensitive name, creating otherwise) and
	// inserts the appointment in one transaction.
	CreateAppointment(ctx context.Context, appt Appointment, client Client) (Appointment, error)

	GetAppointment(ctx context.Context, businessID, id string) (Appointment, error)

	// UpdateAppointment persists appt if the stored row still has status
	// expect; a status raced away from under us reads back as ErrNotFound
	// so callers re-fetch and re-validate the transition.
	UpdateAppointment(ctx context.Context, appt Appointment, expect Status) (Appointment, error)

	// ListAppointments returns appointments with from <= date <= to,
	// ordered by date then start time.
	ListAppointments(ctx context.Context, businessID, from, to string) ([]Appointment, error)

	// BlockedIntervals returns the intervals of blocking appointments on
	// date, excluding the appointment with excludeID when non-empty.
	BlockedIntervals(ctx context.Context, businessID, date, excludeID string) ([]availability.Interval, error)

	ListClients(ctx context.Context, businessID string) ([]Client, error)
	ListClientAppointments(ctx context.Context, businessID, clientID string) ([]Appointment, error)
}

// Config is what the availability engine needs from the business settings
// collaborator for one business/service pair.
type Config struct {
	Hours           availability.BusinessHours
	DurationMinutes int
	Granularity     int
}

type ConfigProvider interface {
	BookingConfig(ctx context.Context, businessID, serviceID string) (Config, error)
}
