package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
)

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

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotConflict):
		http.Error(w, "time slot already booked", http.StatusConflict)
	case errors.Is(err, booking.ErrInvalidTransition):
		http.Error(w, "operation not allowed in current status", http.StatusConflict)
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrInvalidScore):
		http.Error(w, "satisfaction score must be between 0 and 10", http.StatusBadRequest)
	case errors.Is(err, booking.ErrInvalidPayment):
		http.Error(w, "payment_method required", http.StatusBadRequest)
	case errors.Is(err, booking.ErrInvalidTime):
		http.Error(w, "interval does not fit inside the day", http.StatusBadRequest)
	case errors.Is(err, availability.ErrInvalidDuration):
		http.Error(w, "duration must be positive", http.StatusBadRequest)
	case errors.Is(err, availability.ErrInvalidBusinessHours):
		http.Error(w, "business hours are misconfigured", http.StatusBadRequest)
	case errors.Is(err, booking.ErrStoreUnavailable):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
