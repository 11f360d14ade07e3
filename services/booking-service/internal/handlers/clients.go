package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
)

type ClientHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewClientHandler(svc *booking.Service, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{svc: svc, logger: logger}
}

type clientItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}

	clients, err := h.svc.Clients(r.Context(), businessID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]clientItem, 0, len(clients))
	for _, c := range clients {
		item := clientItem{
			ID:    c.ID,
			Name:  c.Name,
			Phone: c.Phone,
			Email: c.Email,
			Notes: c.Notes,
		}
		if !c.CreatedAt.IsZero() {
			item.CreatedAt = c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// Appointments returns one client's booking history, newest first.
func (h *ClientHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := requestBusinessID(r)
	if businessID == "" {
		http.Error(w, "business id required", http.StatusBadRequest)
		return
	}
	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if clientID == "" {
		http.Error(w, "client_id required", http.StatusBadRequest)
		return
	}

	appts, err := h.svc.ClientHistory(r.Context(), businessID, clientID)
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
