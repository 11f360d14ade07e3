package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
)

type staticConfig struct {
	cfg Config
}

func (s staticConfig) BookingConfig(context.Context, string, string) (Config, error) {
	return s.cfg, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	cfg := Config{
		Hours: availability.BusinessHours{
			OpenDays: []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
			Open:     tod(t, "09:00"),
			Close:    tod(t, "18:00"),
		},
		DurationMinutes: 30,
		Granularity:     30,
	}
	return NewService(store, staticConfig{cfg: cfg}), store
}

func tod(t *testing.T, s string) availability.TimeOfDay {
	t.Helper()
	v, err := availability.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

const (
	testBusiness = "biz-1"
	testDate     = "2026-01-28" // Wednesday
)

func mustCreate(t *testing.T, svc *Service, p CreateParams) Appointment {
	t.Helper()
	if p.BusinessID == "" {
		p.BusinessID = testBusiness
	}
	if p.Date == "" {
		p.Date = testDate
	}
	if p.ClientName == "" {
		p.ClientName = "Maria Silva"
	}
	if p.DurationMinutes == 0 {
		p.DurationMinutes = 30
	}
	appt, err := svc.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return appt
}

func TestCreate_ConflictingSlotRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), DurationMinutes: 60})

	_, err := svc.Create(ctx, CreateParams{
		BusinessID:      testBusiness,
		ClientName:      "Joana Costa",
		Date:            testDate,
		Start:           tod(t, "14:30"),
		DurationMinutes: 30,
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
}

func TestCreate_AdjacentIntervalsAllowed(t *testing.T) {
	svc, _ := newTestService(t)

	mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), DurationMinutes: 60})
	// Half-open intervals: back-to-back appointments do not conflict.
	mustCreate(t, svc, CreateParams{ClientName: "Joana Costa", Start: tod(t, "15:00"), DurationMinutes: 30})
	mustCreate(t, svc, CreateParams{ClientName: "Pedro Dias", Start: tod(t, "13:30"), DurationMinutes: 30})
}

func TestCreate_DefaultsToConfirmed(t *testing.T) {
	svc, _ := newTestService(t)

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "09:00")})
	if appt.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", appt.Status)
	}
	if appt.End != tod(t, "09:30") {
		t.Fatalf("expected end 09:30, got %s", appt.End)
	}

	pending := mustCreate(t, svc, CreateParams{Start: tod(t, "10:00"), Status: StatusPending})
	if pending.Status != StatusPending {
		t.Fatalf("expected pending, got %s", pending.Status)
	}
}

func TestCreate_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{
		BusinessID: testBusiness, ClientName: "Maria", Date: testDate,
		Start: tod(t, "10:00"), DurationMinutes: 0,
	})
	if !errors.Is(err, availability.ErrInvalidDuration) {
		t.Errorf("zero duration: expected ErrInvalidDuration, got %v", err)
	}

	_, err = svc.Create(ctx, CreateParams{
		BusinessID: testBusiness, ClientName: "Maria", Date: testDate,
		Start: tod(t, "10:00"), DurationMinutes: 30, Status: StatusCompleted,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed on create: expected ErrInvalidTransition, got %v", err)
	}

	_, err = svc.Create(ctx, CreateParams{
		BusinessID: testBusiness, ClientName: "Maria", Date: "01-28-2026",
		Start: tod(t, "10:00"), DurationMinutes: 30,
	})
	if err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestCreate_ReusesClientByPhone(t *testing.T) {
	svc, store := newTestService(t)

	first := mustCreate(t, svc, CreateParams{ClientName: "Maria Silva", ClientPhone: "11999990000", Start: tod(t, "09:00")})
	second := mustCreate(t, svc, CreateParams{ClientName: "Maria S.", ClientPhone: "11999990000", Start: tod(t, "10:00")})
	if first.ClientID != second.ClientID {
		t.Fatal("expected phone match to reuse the client")
	}

	third := mustCreate(t, svc, CreateParams{ClientName: "maria silva", Start: tod(t, "11:00")})
	if third.ClientID != first.ClientID {
		t.Fatal("expected case-insensitive name match to reuse the client")
	}

	clients, err := store.ListClients(context.Background(), testBusiness)
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, CreateParams{
				BusinessID:      testBusiness,
				ClientName:      "Client",
				ClientPhone:     "1",
				Date:            testDate,
				Start:           tod(t, "14:00"),
				DurationMinutes: 60,
			})
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly 1 successful booking, got %d", created)
	}
	if conflicts != attempts-1 {
		t.Fatalf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
}

func TestLifecycle_StartFinish(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00")})

	started, err := svc.Start(ctx, testBusiness, appt.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", started.Status)
	}

	score := 9
	done, err := svc.Finish(ctx, testBusiness, appt.ID, PaymentPix, &score)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.PaymentMethod != PaymentPix || done.SatisfactionScore == nil || *done.SatisfactionScore != 9 {
		t.Fatalf("payment/score not recorded: %+v", done)
	}
}

func TestLifecycle_IllegalTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00")})

	// Finish before Start.
	if _, err := svc.Finish(ctx, testBusiness, appt.ID, PaymentCash, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("finish from confirmed: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.Start(ctx, testBusiness, appt.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Start twice.
	if _, err := svc.Start(ctx, testBusiness, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.Finish(ctx, testBusiness, appt.ID, PaymentCash, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	// Cancel after completion.
	if _, err := svc.Cancel(ctx, testBusiness, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel completed: expected ErrInvalidTransition, got %v", err)
	}
}

func TestFinish_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00")})
	if _, err := svc.Start(ctx, testBusiness, appt.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.Finish(ctx, testBusiness, appt.ID, "", nil); !errors.Is(err, ErrInvalidPayment) {
		t.Errorf("missing payment: expected ErrInvalidPayment, got %v", err)
	}
	bad := 11
	if _, err := svc.Finish(ctx, testBusiness, appt.ID, PaymentDebit, &bad); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("score 11: expected ErrInvalidScore, got %v", err)
	}
	neg := -1
	if _, err := svc.Finish(ctx, testBusiness, appt.ID, PaymentDebit, &neg); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("score -1: expected ErrInvalidScore, got %v", err)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00")})

	first, err := svc.Cancel(ctx, testBusiness, appt.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if first.Status != StatusCanceled {
		t.Fatalf("expected canceled, got %s", first.Status)
	}

	second, err := svc.Cancel(ctx, testBusiness, appt.ID)
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if second.Status != StatusCanceled {
		t.Fatalf("expected canceled, got %s", second.Status)
	}
}

func TestCancel_FreesSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), DurationMinutes: 60})
	if _, err := svc.Cancel(ctx, testBusiness, appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The canceled interval no longer blocks.
	mustCreate(t, svc, CreateParams{ClientName: "Joana Costa", Start: tod(t, "14:00"), DurationMinutes: 60})

	slots, err := svc.AvailableSlots(ctx, testBusiness, "", testDate, 0)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, s := range slots {
		if s == tod(t, "14:00") || s == tod(t, "14:30") {
			t.Fatalf("slot %s should be blocked by the rebooked interval", s)
		}
	}
}

func TestReschedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), DurationMinutes: 60, Status: StatusPending})

	moved, err := svc.Reschedule(ctx, testBusiness, appt.ID, testDate, tod(t, "16:00"))
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Status != StatusConfirmed {
		t.Fatalf("expected confirmed after reschedule, got %s", moved.Status)
	}
	if moved.End-moved.Start != appt.End-appt.Start {
		t.Fatalf("duration changed: %d -> %d", appt.End-appt.Start, moved.End-moved.Start)
	}

	// Moving into an interval overlapping only itself must succeed.
	again, err := svc.Reschedule(ctx, testBusiness, appt.ID, testDate, tod(t, "16:30"))
	if err != nil {
		t.Fatalf("self-overlapping reschedule: %v", err)
	}
	if again.Start != tod(t, "16:30") || again.End != tod(t, "17:30") {
		t.Fatalf("unexpected interval %s-%s", again.Start, again.End)
	}
}

func TestReschedule_ConflictAndTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), DurationMinutes: 60})
	other := mustCreate(t, svc, CreateParams{ClientName: "Joana Costa", Start: tod(t, "10:00"), DurationMinutes: 60})

	if _, err := svc.Reschedule(ctx, testBusiness, appt.ID, testDate, tod(t, "10:30")); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("expected ErrSlotConflict, got %v", err)
	}

	if _, err := svc.Cancel(ctx, testBusiness, other.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Reschedule(ctx, testBusiness, other.ID, testDate, tod(t, "11:00")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reschedule canceled: expected ErrInvalidTransition, got %v", err)
	}
}

func TestMove_PreservesStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), Status: StatusPending})

	moved, err := svc.Move(ctx, testBusiness, appt.ID, "2026-01-29", tod(t, "09:00"))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.Status != StatusPending {
		t.Fatalf("expected pending preserved, got %s", moved.Status)
	}
	if moved.Date != "2026-01-29" {
		t.Fatalf("expected date 2026-01-29, got %s", moved.Date)
	}
}

func TestAvailableSlots_ReflectsBookings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateParams{Start: tod(t, "14:00"), DurationMinutes: 60})

	slots, err := svc.AvailableSlots(ctx, testBusiness, "", testDate, 0)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, s := range slots {
		if s == tod(t, "14:00") || s == tod(t, "14:30") {
			t.Fatalf("slot %s should be blocked", s)
		}
	}
	found := false
	for _, s := range slots {
		if s == tod(t, "15:00") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected 15:00 to stay available")
	}
}

func TestGetAppointment_WrongBusiness(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	appt := mustCreate(t, svc, CreateParams{Start: tod(t, "14:00")})
	if _, err := store.GetAppointment(ctx, "other-biz", appt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
