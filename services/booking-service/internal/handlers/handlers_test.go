package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/hours"
)

// fakeStore keeps appointments in memory and rejects overlapping blocking
// intervals at write time, like the production store's exclusion constraint.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	appts   map[string]booking.Appointment
	clients map[string]booking.Client
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appts:   map[string]booking.Appointment{},
		clients: map[string]booking.Client{},
	}
}

func (f *fakeStore) CreateAppointment(_ context.Context, appt booking.Appointment, client booking.Client) (booking.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if appt.Status.Blocking() && f.overlaps(appt, "") {
		return booking.Appointment{}, booking.ErrSlotConflict
	}
	f.seq++
	client.ID = fmt.Sprintf("client-%d", f.seq)
	f.clients[client.ID] = client
	appt.ClientID = client.ID
	f.appts[appt.ID] = appt
	return appt, nil
}

func (f *fakeStore) GetAppointment(_ context.Context, businessID, id string) (booking.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appts[id]
	if !ok || appt.BusinessID != businessID {
		return booking.Appointment{}, booking.ErrNotFound
	}
	return appt, nil
}

func (f *fakeStore) UpdateAppointment(_ context.Context, appt booking.Appointment, expect booking.Status) (booking.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.appts[appt.ID]
	if !ok || cur.Status != expect {
		return booking.Appointment{}, booking.ErrNotFound
	}
	if appt.Status.Blocking() && f.overlaps(appt, appt.ID) {
		return booking.Appointment{}, booking.ErrSlotConflict
	}
	f.appts[appt.ID] = appt
	return appt, nil
}

func (f *fakeStore) ListAppointments(_ context.Context, businessID, from, to string) ([]booking.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []booking.Appointment
	for _, a := range f.appts {
		if a.BusinessID == businessID && a.Date >= from && a.Date <= to {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) BlockedIntervals(_ context.Context, businessID, date, excludeID string) ([]availability.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []availability.Interval
	for _, a := range f.appts {
		if a.BusinessID == businessID && a.Date == date && a.Status.Blocking() && a.ID != excludeID {
			out = append(out, a.Interval())
		}
	}
	return out, nil
}

func (f *fakeStore) ListClients(_ context.Context, businessID string) ([]booking.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []booking.Client
	for _, c := range f.clients {
		if c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListClientAppointments(_ context.Context, businessID, clientID string) ([]booking.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []booking.Appointment
	for _, a := range f.appts {
		if a.BusinessID == businessID && a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) overlaps(appt booking.Appointment, excludeID string) bool {
	for _, a := range f.appts {
		if a.ID == excludeID || a.BusinessID != appt.BusinessID || a.Date != appt.Date || !a.Status.Blocking() {
			continue
		}
		if appt.Interval().Overlaps(a.Interval()) {
			return true
		}
	}
	return false
}

const testDate = "2026-01-28" // Wednesday

func newTestHandlers(t *testing.T) (*AppointmentHandler, *ClientHandler, *booking.Service) {
	t.Helper()
	provider, err := hours.NewStaticProvider(
		[]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		"09:00", "18:00", 30, 30,
	)
	if err != nil {
		t.Fatalf("NewStaticProvider: %v", err)
	}
	svc := booking.NewService(newFakeStore(), provider)
	logger := slog.New(slog.DiscardHandler)
	return NewAppointmentHandler(svc, logger), NewClientHandler(svc, logger), svc
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any, businessID string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	if businessID != "" {
		req.Header.Set("X-Business-Id", businessID)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSlots(t *testing.T) {
	appts, _, svc := newTestHandlers(t)

	_, err := svc.Create(context.Background(), booking.CreateParams{
		BusinessID: "biz-1", ClientName: "Maria", Date: testDate,
		Start: mustTOD(t, "14:00"), DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?business_id=biz-1&date="+testDate, nil)
	rec := httptest.NewRecorder()
	appts.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, s := range resp.Slots {
		if s == "14:00" || s == "14:30" {
			t.Errorf("slot %s should be blocked", s)
		}
	}
}

func TestSlots_MissingParams(t *testing.T) {
	appts, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?date="+testDate, nil)
	rec := httptest.NewRecorder()
	appts.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPublicBook(t *testing.T) {
	appts, _, _ := newTestHandlers(t)

	body := map[string]any{
		"business_id": "biz-1",
		"client_name": "Maria Silva",
		"date":        testDate,
		"start":       "14:00",
	}
	rec := postJSON(t, appts.PublicBook, "/api/v1/public/book", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Status != "confirmed" {
		t.Fatalf("expected confirmed, got %s", created.Status)
	}
	if created.End != "14:30" {
		t.Fatalf("expected catalog duration 30m (end 14:30), got %s", created.End)
	}

	// Same slot again conflicts.
	rec = postJSON(t, appts.PublicBook, "/api/v1/public/book", body, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	appts, _, svc := newTestHandlers(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, booking.CreateParams{
		BusinessID: "biz-1", ClientName: "Maria", Date: testDate,
		Start: mustTOD(t, "10:00"), DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Finish before start is rejected.
	rec := postJSON(t, appts.Finish, "/api/v1/appointments/finish", map[string]any{
		"appointment_id": created.ID,
		"payment_method": "pix",
	}, "biz-1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("finish before start: expected 409, got %d", rec.Code)
	}

	rec = postJSON(t, appts.Start, "/api/v1/appointments/start", map[string]any{
		"appointment_id": created.ID,
	}, "biz-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	score := 11
	rec = postJSON(t, appts.Finish, "/api/v1/appointments/finish", map[string]any{
		"appointment_id":     created.ID,
		"payment_method":     "pix",
		"satisfaction_score": score,
	}, "biz-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("score 11: expected 400, got %d", rec.Code)
	}

	rec = postJSON(t, appts.Finish, "/api/v1/appointments/finish", map[string]any{
		"appointment_id":     created.ID,
		"payment_method":     "pix",
		"satisfaction_score": 9,
	}, "biz-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("finish: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var done appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if done.Status != "completed" || done.PaymentMethod != "pix" {
		t.Fatalf("unexpected finish result: %+v", done)
	}
}

func TestReschedule_RequiresTarget(t *testing.T) {
	appts, _, svc := newTestHandlers(t)

	created, err := svc.Create(context.Background(), booking.CreateParams{
		BusinessID: "biz-1", ClientName: "Maria", Date: testDate,
		Start: mustTOD(t, "10:00"), DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := postJSON(t, appts.Reschedule, "/api/v1/appointments/reschedule", map[string]any{
		"appointment_id": created.ID,
	}, "biz-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = postJSON(t, appts.Reschedule, "/api/v1/appointments/reschedule", map[string]any{
		"appointment_id": created.ID,
		"date":           testDate,
		"start":          "11:00",
	}, "biz-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInternalEndpoints_RequireBusinessID(t *testing.T) {
	appts, clients, _ := newTestHandlers(t)

	rec := postJSON(t, appts.Start, "/api/v1/appointments/start", map[string]any{"appointment_id": "x"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("start without business id: expected 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	rec = httptest.NewRecorder()
	clients.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("clients without business id: expected 400, got %d", rec.Code)
	}
}

func TestClientHistory(t *testing.T) {
	_, clients, svc := newTestHandlers(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, booking.CreateParams{
		BusinessID: "biz-1", ClientName: "Maria", ClientPhone: "119", Date: testDate,
		Start: mustTOD(t, "10:00"), DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/appointments?client_id="+created.ClientID, nil)
	req.Header.Set("X-Business-Id", "biz-1")
	rec := httptest.NewRecorder()
	clients.Appointments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("unexpected history: %+v", items)
	}
}

func mustTOD(t *testing.T, s string) availability.TimeOfDay {
	t.Helper()
	v, err := availability.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}
