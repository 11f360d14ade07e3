package message

import (
	"fmt"
	"strings"
)

// AppointmentEvent mirrors the JSON payload of the booking appointment
// topics. Fields not set by older producers stay empty.
type AppointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	ClientEmail   string `json:"client_email"`
	ServiceName   string `json:"service_name"`
	Date          string `json:"date"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
}

// Build renders the client-facing subject and body for an appointment event
// type. Unknown event types return ok=false and produce no notification.
func Build(eventType string, ev AppointmentEvent, businessName string) (subject, body string, ok bool) {
	what := ev.ServiceName
	if what == "" {
		what = "your appointment"
	}
	when := fmt.Sprintf("%s at %s", ev.Date, ev.Start)

	switch eventType {
	case "booking.appointment.booked.v1":
		subject = "Appointment confirmed"
		body = fmt.Sprintf("Hi %s, %s is booked for %s.", firstName(ev.ClientName), what, when)
	case "booking.appointment.rescheduled.v1":
		subject = "Appointment rescheduled"
		body = fmt.Sprintf("Hi %s, %s was moved to %s.", firstName(ev.ClientName), what, when)
	case "booking.appointment.canceled.v1":
		subject = "Appointment canceled"
		body = fmt.Sprintf("Hi %s, %s on %s was canceled.", firstName(ev.ClientName), what, when)
	default:
		return "", "", false
	}

	if businessName != "" {
		body = fmt.Sprintf("[%s] %s", businessName, body)
	}
	return subject, body, true
}

func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return "there"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
