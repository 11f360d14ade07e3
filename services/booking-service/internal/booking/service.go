package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
)

// Service implements the appointment lifecycle on top of a Store. Overlap
// checks here are advisory; the store's commit-time guarantee is what makes
// double booking impossible.
type Service struct {
	store  Store
	config ConfigProvider
}

func NewService(store Store, config ConfigProvider) *Service {
	return &Service{store: store, config: config}
}

// AvailableSlots computes bookable start times for a business/service pair
// on a date. durationOverride, when positive, replaces the catalog duration.
func (s *Service) AvailableSlots(ctx context.Context, businessID, serviceID, date string, durationOverride int) ([]availability.TimeOfDay, error) {
	cfg, err := s.config.BookingConfig(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}
	duration := cfg.DurationMinutes
	if durationOverride > 0 {
		duration = durationOverride
	}
	busy, err := s.store.BlockedIntervals(ctx, businessID, date, "")
	if err != nil {
		return nil, err
	}
	return availability.Slots(date, duration, cfg.Hours, busy, cfg.Granularity)
}

// BookingConfigFor exposes the resolved business configuration, used by the
// public booking flow to default the duration from the service catalog.
func (s *Service) BookingConfigFor(ctx context.Context, businessID, serviceID string) (Config, error) {
	return s.config.BookingConfig(ctx, businessID, serviceID)
}

type CreateParams struct {
	BusinessID      string
	ClientName      string
	ClientPhone     string
	ClientEmail     string
	ServiceID       string
	ServiceName     string
	Date            string
	Start           availability.TimeOfDay
	DurationMinutes int
	ValueCents      int64
	CostCents       int64
	Status          Status // empty means confirmed
}

func (s *Service) Create(ctx context.Context, p CreateParams) (Appointment, error) {
	status := p.Status
	if status == "" {
		status = StatusConfirmed
	}
	if status != StatusPending && status != StatusConfirmed {
		return Appointment{}, ErrInvalidTransition
	}
	if p.DurationMinutes <= 0 {
		return Appointment{}, availability.ErrInvalidDuration
	}
	if _, err := availability.ParseDate(p.Date); err != nil {
		return Appointment{}, err
	}
	end := p.Start + availability.TimeOfDay(p.DurationMinutes)
	if !p.Start.Valid() || end > 24*60 {
		return Appointment{}, ErrInvalidTime
	}
	if p.ClientName == "" {
		return Appointment{}, fmt.Errorf("booking: client name required")
	}

	interval := availability.Interval{Start: p.Start, End: end}
	busy, err := s.store.BlockedIntervals(ctx, p.BusinessID, p.Date, "")
	if err != nil {
		return Appointment{}, err
	}
	for _, b := range busy {
		if interval.Overlaps(b) {
			return Appointment{}, ErrSlotConflict
		}
	}

	appt := Appointment{
		ID:          uuid.NewString(),
		BusinessID:  p.BusinessID,
		ClientName:  p.ClientName,
		ClientPhone: p.ClientPhone,
		ServiceID:   p.ServiceID,
		ServiceName: p.ServiceName,
		Date:        p.Date,
		Start:       p.Start,
		End:         end,
		Status:      status,
		ValueCents:  p.ValueCents,
		CostCents:   p.CostCents,
	}
	client := Client{
		BusinessID: p.BusinessID,
		Name:       p.ClientName,
		Phone:      p.ClientPhone,
		Email:      p.ClientEmail,
	}
	return s.store.CreateAppointment(ctx, appt, client)
}

// Start marks a pending or confirmed appointment as in progress.
func (s *Service) Start(ctx context.Context, businessID, id string) (Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return Appointment{}, err
	}
	if !ValidTransition(appt.Status, StatusInProgress) {
		return Appointment{}, ErrInvalidTransition
	}
	prev := appt.Status
	appt.Status = StatusInProgress
	return s.store.UpdateAppointment(ctx, appt, prev)
}

// Finish completes an in-progress appointment, stamping the payment method
// and an optional 0..10 satisfaction score.
func (s *Service) Finish(ctx context.Context, businessID, id, paymentMethod string, score *int) (Appointment, error) {
	if paymentMethod == "" {
		return Appointment{}, ErrInvalidPayment
	}
	if score != nil && (*score < 0 || *score > 10) {
		return Appointment{}, ErrInvalidScore
	}
	appt, err := s.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return Appointment{}, err
	}
	if !ValidTransition(appt.Status, StatusCompleted) {
		return Appointment{}, ErrInvalidTransition
	}
	prev := appt.Status
	appt.Status = StatusCompleted
	appt.PaymentMethod = paymentMethod
	appt.SatisfactionScore = score
	return s.store.UpdateAppointment(ctx, appt, prev)
}

// Cancel moves any non-terminal appointment to canceled. Canceling an
// already canceled appointment is a no-op.
func (s *Service) Cancel(ctx context.Context, businessID, id string) (Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return Appointment{}, err
	}
	if appt.Status == StatusCanceled {
		return appt, nil
	}
	if !ValidTransition(appt.Status, StatusCanceled) {
		return Appointment{}, ErrInvalidTransition
	}
	prev := appt.Status
	appt.Status = StatusCanceled
	return s.store.UpdateAppointment(ctx, appt, prev)
}

// Reschedule moves an appointment to a new date/time, keeping its stored
// duration, and confirms it.
func (s *Service) Reschedule(ctx context.Context, businessID, id, date string, start availability.TimeOfDay) (Appointment, error) {
	return s.move(ctx, businessID, id, date, start, true)
}

// Move is Reschedule without the status change: the appointment keeps its
// current status, except an appointment awaiting reschedule which confirms.
func (s *Service) Move(ctx context.Context, businessID, id, date string, start availability.TimeOfDay) (Appointment, error) {
	return s.move(ctx, businessID, id, date, start, false)
}

func (s *Service) move(ctx context.Context, businessID, id, date string, start availability.TimeOfDay, confirm bool) (Appointment, error) {
	if _, err := availability.ParseDate(date); err != nil {
		return Appointment{}, err
	}
	appt, err := s.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return Appointment{}, err
	}
	if appt.Status.Terminal() {
		return Appointment{}, ErrInvalidTransition
	}

	target := appt.Status
	if confirm || appt.Status == StatusReschedule {
		target = StatusConfirmed
	}
	if target != appt.Status && !ValidTransition(appt.Status, target) {
		return Appointment{}, ErrInvalidTransition
	}

	duration := appt.End - appt.Start
	end := start + duration
	if !start.Valid() || end > 24*60 {
		return Appointment{}, ErrInvalidTime
	}

	busy, err := s.store.BlockedIntervals(ctx, businessID, date, appt.ID)
	if err != nil {
		return Appointment{}, err
	}
	interval := availability.Interval{Start: start, End: end}
	for _, b := range busy {
		if interval.Overlaps(b) {
			return Appointment{}, ErrSlotConflict
		}
	}

	prev := appt.Status
	appt.Date = date
	appt.Start = start
	appt.End = end
	appt.Status = target
	return s.store.UpdateAppointment(ctx, appt, prev)
}

// ListDay returns all appointments on a single date.
func (s *Service) ListDay(ctx context.Context, businessID, date string) ([]Appointment, error) {
	return s.store.ListAppointments(ctx, businessID, date, date)
}

// ListRange returns appointments with from <= date <= to.
func (s *Service) ListRange(ctx context.Context, businessID, from, to string) ([]Appointment, error) {
	return s.store.ListAppointments(ctx, businessID, from, to)
}

func (s *Service) Clients(ctx context.Context, businessID string) ([]Client, error) {
	return s.store.ListClients(ctx, businessID)
}

func (s *Service) ClientHistory(ctx context.Context, businessID, clientID string) ([]Appointment, error) {
	return s.store.ListClientAppointments(ctx, businessID, clientID)
}
