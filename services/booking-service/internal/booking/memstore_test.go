package booking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
)

// memStore is a test double that mirrors the Postgres store's commit-time
// behavior: writes are serialized and a write whose interval overlaps a
// blocking appointment fails with ErrSlotConflict, the way the exclusion
// constraint rejects it.
type memStore struct {
	mu      sync.Mutex
	appts   map[string]Appointment
	clients map[string]Client
}

func newMemStore() *memStore {
	return &memStore{
		appts:   map[string]Appointment{},
		clients: map[string]Client{},
	}
}

func (m *memStore) CreateAppointment(_ context.Context, appt Appointment, client Client) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if appt.Status.Blocking() && m.conflicts(appt, "") {
		return Appointment{}, ErrSlotConflict
	}

	appt.ClientID = m.resolveClient(client)
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	m.appts[appt.ID] = appt
	return appt, nil
}

func (m *memStore) GetAppointment(_ context.Context, businessID, id string) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appts[id]
	if !ok || appt.BusinessID != businessID {
		return Appointment{}, ErrNotFound
	}
	return appt, nil
}

func (m *memStore) UpdateAppointment(_ context.Context, appt Appointment, expect Status) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.appts[appt.ID]
	if !ok || cur.BusinessID != appt.BusinessID || cur.Status != expect {
		return Appointment{}, ErrNotFound
	}
	if appt.Status.Blocking() && m.conflicts(appt, appt.ID) {
		return Appointment{}, ErrSlotConflict
	}
	appt.UpdatedAt = time.Now()
	m.appts[appt.ID] = appt
	return appt, nil
}

func (m *memStore) ListAppointments(_ context.Context, businessID, from, to string) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appts {
		if a.BusinessID == businessID && a.Date >= from && a.Date <= to {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *memStore) BlockedIntervals(_ context.Context, businessID, date, excludeID string) ([]availability.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []availability.Interval
	for _, a := range m.appts {
		if a.BusinessID == businessID && a.Date == date && a.Status.Blocking() && a.ID != excludeID {
			out = append(out, a.Interval())
		}
	}
	return out, nil
}

func (m *memStore) ListClients(_ context.Context, businessID string) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Client
	for _, c := range m.clients {
		if c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ListClientAppointments(_ context.Context, businessID, clientID string) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appts {
		if a.BusinessID == businessID && a.ClientID == clientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memStore) conflicts(appt Appointment, excludeID string) bool {
	for _, a := range m.appts {
		if a.ID == excludeID || a.BusinessID != appt.BusinessID || a.Date != appt.Date || !a.Status.Blocking() {
			continue
		}
		if appt.Interval().Overlaps(a.Interval()) {
			return true
		}
	}
	return false
}

func (m *memStore) resolveClient(client Client) string {
	for _, c := range m.clients {
		if c.BusinessID != client.BusinessID {
			continue
		}
		if client.Phone != "" && c.Phone == client.Phone {
			return c.ID
		}
	}
	for _, c := range m.clients {
		if c.BusinessID == client.BusinessID && strings.EqualFold(c.Name, client.Name) {
			return c.ID
		}
	}
	client.ID = uuid.NewString()
	client.CreatedAt = time.Now()
	m.clients[client.ID] = client
	return client.ID
}
