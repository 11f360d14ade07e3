package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agenda-ai/agenda-backend/libs/httpx"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
)

type AppointmentHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *booking.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type appointmentItem struct {
	ID                string `json:"id"`
	ClientID          string `json:"client_id"`
	ClientName        string `json:"client_name"`
	ClientPhone       string `json:"client_phone,omitempty"`
	ServiceID         string `json:"service_id,omitempty"`
	ServiceName       string `json:"service_name,omitempty"`
	Date              string `json:"date"`
	Start             string `json:"start"`
	End               string `json:"end"`
	Status            string `json:"status"`
	ValueCents        int64  `json:"value_cents"`
	CostCents         int64  `json:"cost_cents"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	SatisfactionScore *int   `json:"satisfaction_score,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

func toItem(a booking.Appointment) appointmentItem {
	item := appointmentItem{
		ID:                a.ID,
		ClientID:          a.ClientID,
		ClientName:        a.ClientName,
		ClientPhone:       a.ClientPhone,
		ServiceID:         a.ServiceID,
		ServiceName:       a.ServiceName,
		Date:              a.Date,
		Start:             a.Start.String(),
		End:               a.End.String(),
		Status:            string(a.Status),
		ValueCents:        a.ValueCents,
		CostCents:         a.CostCents,
		PaymentMethod:     a.PaymentMethod,
		SatisfactionScore: a.SatisfactionScore,
	}
	if !a.CreatedAt.IsZero() {
		item.CreatedAt = a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if !a.UpdatedAt.IsZero() {
		item.UpdatedAt = a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return item
}

// Slots serves the public availability lookup.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	date := strings.TrimSpace(q.Get("date"))
	if businessID == "" || date == "" {
		http.Error(w, "business_id and date are required", http.StatusBadRequest)
		return
	}
	if _, err := availability.ParseDate(date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	durationOverride := 0
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		durationOverride = n
	}

	slots, err := h.svc.AvailableSlots(r.Context(), businessID, serviceID, date, durationOverride)
	if err != nil {
		h.logger.Warn("slot lookup failed", "business_id", businessID, "err", err)
		writeDomainError(w, err)
		return
	}

	items := make([]string, 0, len(slots))
	for _, s := range slots {
		items = append(items, s.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": items})
}

type bookRequest struct {
	BusinessID      string `json:"business_id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	ClientEmail     string `json:"client_email"`
	ServiceID       string `json:"service_id"`
	ServiceName     string `json:"service_name"`
	Date            string `json:"date"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	ValueCents      int64  `json:"value_cents"`
	CostCents       int64  `json:"cost_cents"`
	Status          string `json:"status"`
}

// PublicBook creates a confirmed appointment for an end client. The
// duration comes from the service catalog unless the request overrides it.
func (h *AppointmentHandler) PublicBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, start, ok := h.decodeBookRequest(w, r)
	if !ok {
		return
	}
	if req.BusinessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	duration := req.DurationMinutes
	if duration == 0 {
		cfg, err := h.svc.BookingConfigFor(r.Context(), req.BusinessID, req.ServiceID)
		if err != nil {
			h.logger.Warn("booking config fetch failed", "business_id", req.BusinessID, "err", err)
			http.Error(w, "booking configuration unavailable", http.StatusServiceUnavailable)
			return
		}
		duration = cfg.DurationMinutes
	}

	appt, err := h.svc.Create(r.Context(), booking.CreateParams{
		BusinessID:      req.BusinessID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		ClientEmail:     req.ClientEmail,
		ServiceID:       req.ServiceID,
		ServiceName:     req.ServiceName,
		Date:            req.Date,
		Start:           start,
		DurationMinutes: duration,
		ValueCents:      req.ValueCents,
		Status:          booking.StatusConfirmed,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(appt))
}

// Create is the internal (authenticated) creation endpoint.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	req, start, ok := h.decodeBookRequest(w, r)
	if !ok {
		return
	}

	status := booking.Status(strings.TrimSpace(req.Status))
	appt, err := h.svc.Create(r.Context(), booking.CreateParams{
		BusinessID:      businessID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		ClientEmail:     req.ClientEmail,
		ServiceID:       req.ServiceID,
		ServiceName:     req.ServiceName,
		Date:            req.Date,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		ValueCents:      req.ValueCents,
		CostCents:       req.CostCents,
		Status:          status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(appt))
}

// List returns appointments for a day (date=) or an inclusive range (from=&to=).
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	from := strings.TrimSpace(q.Get("from"))
	to := strings.TrimSpace(q.Get("to"))
	if date := strings.TrimSpace(q.Get("date")); date != "" {
		from, to = date, date
	}
	if from == "" || to == "" {
		http.Error(w, "date or from/to required", http.StatusBadRequest)
		return
	}
	for _, d := range []string{from, to} {
		if _, err := availability.ParseDate(d); err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
	}

	appts, err := h.svc.ListRange(r.Context(), businessID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

type lifecycleRequest struct {
	AppointmentID     string `json:"appointment_id"`
	PaymentMethod     string `json:"payment_method"`
	SatisfactionScore *int   `json:"satisfaction_score"`
	Date              string `json:"date"`
	Start             string `json:"start"`
}

func (h *AppointmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(businessID string, req lifecycleRequest) (booking.Appointment, error) {
		return h.svc.Start(r.Context(), businessID, req.AppointmentID)
	})
}

func (h *AppointmentHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(businessID string, req lifecycleRequest) (booking.Appointment, error) {
		return h.svc.Finish(r.Context(), businessID, req.AppointmentID, strings.TrimSpace(req.PaymentMethod), req.SatisfactionScore)
	})
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(businessID string, req lifecycleRequest) (booking.Appointment, error) {
		return h.svc.Cancel(r.Context(), businessID, req.AppointmentID)
	})
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(businessID string, req lifecycleRequest) (booking.Appointment, error) {
		start, err := parseMoveTarget(req)
		if err != nil {
			return booking.Appointment{}, err
		}
		return h.svc.Reschedule(r.Context(), businessID, req.AppointmentID, req.Date, start)
	})
}

func (h *AppointmentHandler) Move(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(businessID string, req lifecycleRequest) (booking.Appointment, error) {
		start, err := parseMoveTarget(req)
		if err != nil {
			return booking.Appointment{}, err
		}
		return h.svc.Move(r.Context(), businessID, req.AppointmentID, req.Date, start)
	})
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func parseMoveTarget(req lifecycleRequest) (availability.TimeOfDay, error) {
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Start) == "" {
		return 0, &badRequestError{msg: "date and start are required"}
	}
	if _, err := availability.ParseDate(req.Date); err != nil {
		return 0, &badRequestError{msg: "invalid date"}
	}
	start, err := availability.ParseTimeOfDay(req.Start)
	if err != nil {
		return 0, &badRequestError{msg: "invalid start"}
	}
	return start, nil
}

func (h *AppointmentHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(string, lifecycleRequest) (booking.Appointment, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	var req lifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := op(businessID, req)
	if err != nil {
		var badReq *badRequestError
		if errors.As(err, &badReq) {
			http.Error(w, badReq.msg, http.StatusBadRequest)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

func (h *AppointmentHandler) decodeBookRequest(w http.ResponseWriter, r *http.Request) (bookRequest, availability.TimeOfDay, bool) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return bookRequest{}, 0, false
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	req.ClientEmail = strings.TrimSpace(req.ClientEmail)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ServiceName = strings.TrimSpace(req.ServiceName)
	req.Date = strings.TrimSpace(req.Date)

	if req.ClientName == "" || req.Date == "" {
		http.Error(w, "client_name and date are required", http.StatusBadRequest)
		return bookRequest{}, 0, false
	}
	if _, err := availability.ParseDate(req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return bookRequest{}, 0, false
	}
	start, err := availability.ParseTimeOfDay(strings.TrimSpace(req.Start))
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return bookRequest{}, 0, false
	}
	return req, start, true
}

func requestBusinessID(r *http.Request) string {
	if id := httpx.BusinessIDFromContext(r.Context()); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get("X-Business-Id"))
}
