package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/agenda-ai/agenda-backend/libs/httpx"
	"github.com/agenda-ai/agenda-backend/services/business-service/internal/storage"
)

type Handler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func New(repo *storage.Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

type profilePayload struct {
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Phone           string   `json:"phone"`
	OpenDays        []string `json:"open_days"`
	OpenTime        string   `json:"open_time"`
	CloseTime       string   `json:"close_time"`
	SlotGranularity int      `json:"slot_granularity_minutes"`
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetOrCreateProfile(r.Context(), businessID)
	if err != nil {
		h.logger.Error("profile load failed", "business_id", businessID, "err", err)
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profilePayload{
		Name:            p.Name,
		Slug:            p.Slug,
		Phone:           p.Phone,
		OpenDays:        p.OpenDays,
		OpenTime:        formatClock(p.OpenMinute),
		CloseTime:       formatClock(p.CloseMinute),
		SlotGranularity: p.SlotGranularity,
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	var req profilePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	openDays, err := normalizeOpenDays(req.OpenDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	openMin, err := parseClock(req.OpenTime)
	if err != nil {
		http.Error(w, "invalid open_time", http.StatusBadRequest)
		return
	}
	closeMin, err := parseClock(req.CloseTime)
	if err != nil {
		http.Error(w, "invalid close_time", http.StatusBadRequest)
		return
	}
	if openMin >= closeMin {
		http.Error(w, "open_time must precede close_time", http.StatusBadRequest)
		return
	}
	granularity := req.SlotGranularity
	if granularity == 0 {
		granularity = 30
	}
	if granularity < 5 || granularity > 240 {
		http.Error(w, "slot_granularity_minutes out of range", http.StatusBadRequest)
		return
	}

	err = h.repo.UpdateProfile(r.Context(), storage.BusinessProfile{
		BusinessID:      businessID,
		Name:            strings.TrimSpace(req.Name),
		Slug:            strings.TrimSpace(req.Slug),
		Phone:           strings.TrimSpace(req.Phone),
		OpenDays:        openDays,
		OpenMinute:      openMin,
		CloseMinute:     closeMin,
		SlotGranularity: granularity,
	})
	if err != nil {
		h.logger.Error("profile update failed", "business_id", businessID, "err", err)
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type serviceItemPayload struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	DurationMinutes int      `json:"duration_minutes"`
	PriceCents      int64    `json:"price_cents"`
	Description     string   `json:"description,omitempty"`
	IncludedIDs     []string `json:"included_service_ids,omitempty"`
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	var req serviceItemPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	itemType := strings.TrimSpace(req.Type)
	if itemType == "" {
		itemType = "service"
	}
	if itemType != "service" && itemType != "combo" && itemType != "offer" {
		http.Error(w, "type must be service, combo, or offer", http.StatusBadRequest)
		return
	}

	item := storage.ServiceItem{
		BusinessID:   businessID,
		Name:         req.Name,
		Type:         itemType,
		DurationMins: req.DurationMinutes,
		PriceCents:   req.PriceCents,
		Description:  strings.TrimSpace(req.Description),
		IncludedIDs:  req.IncludedIDs,
	}

	// Combos resolve their totals from the included services up front so
	// every consumer sees a plain duration and price.
	if itemType == "combo" {
		if len(item.IncludedIDs) == 0 {
			http.Error(w, "combo requires included_service_ids", http.StatusBadRequest)
			return
		}
		duration, price, err := h.repo.SumServices(r.Context(), businessID, item.IncludedIDs)
		if err != nil {
			h.logger.Error("combo aggregation failed", "business_id", businessID, "err", err)
			http.Error(w, "failed to resolve combo", http.StatusInternalServerError)
			return
		}
		if duration <= 0 {
			http.Error(w, "combo resolved to zero duration", http.StatusBadRequest)
			return
		}
		item.DurationMins = duration
		if item.PriceCents == 0 {
			item.PriceCents = price
		}
	}

	if item.DurationMins <= 0 {
		http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
		return
	}

	id, err := h.repo.CreateService(r.Context(), item)
	if err != nil {
		h.logger.Error("service create failed", "business_id", businessID, "err", err)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	items, err := h.repo.ListServices(r.Context(), businessID, 0)
	if err != nil {
		h.logger.Error("service list failed", "business_id", businessID, "err", err)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}

	out := make([]serviceItemPayload, 0, len(items))
	for _, s := range items {
		out = append(out, serviceItemPayload{
			ID:              s.ID,
			Name:            s.Name,
			Type:            s.Type,
			DurationMinutes: s.DurationMins,
			PriceCents:      s.PriceCents,
			Description:     s.Description,
			IncludedIDs:     s.IncludedIDs,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

var weekdayCodes = map[string]bool{
	"Mon": true, "Tue": true, "Wed": true, "Thu": true,
	"Fri": true, "Sat": true, "Sun": true,
}

func normalizeOpenDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, errors.New("open_days required")
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.TrimSpace(d)
		if !weekdayCodes[d] {
			return nil, fmt.Errorf("invalid open day %q", d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, nil
}

func parseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid time %q", s)
		}
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func requestBusinessID(r *http.Request) string {
	if id := httpx.BusinessIDFromContext(r.Context()); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get("X-Business-Id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
