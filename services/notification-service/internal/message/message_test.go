package message

import (
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	ev := AppointmentEvent{
		ClientName:  "Maria Souza",
		ServiceName: "Haircut",
		Date:        "2026-01-28",
		Start:       "14:00",
	}

	cases := []struct {
		eventType   string
		wantSubject string
		wantIn      string
	}{
		{"booking.appointment.booked.v1", "Appointment confirmed", "Haircut is booked for 2026-01-28 at 14:00"},
		{"booking.appointment.rescheduled.v1", "Appointment rescheduled", "moved to 2026-01-28 at 14:00"},
		{"booking.appointment.canceled.v1", "Appointment canceled", "was canceled"},
	}
	for _, tc := range cases {
		subject, body, ok := Build(tc.eventType, ev, "Studio Bella")
		if !ok {
			t.Fatalf("Build(%q): not ok", tc.eventType)
		}
		if subject != tc.wantSubject {
			t.Errorf("subject = %q, want %q", subject, tc.wantSubject)
		}
		if !strings.Contains(body, tc.wantIn) {
			t.Errorf("body %q missing %q", body, tc.wantIn)
		}
		if !strings.HasPrefix(body, "[Studio Bella] Hi Maria,") {
			t.Errorf("body %q missing greeting prefix", body)
		}
	}
}

func TestBuild_UnknownEventType(t *testing.T) {
	if _, _, ok := Build("booking.appointment.completed.v1", AppointmentEvent{}, ""); ok {
		t.Error("completed events should not produce a client notification")
	}
}

func TestBuild_Fallbacks(t *testing.T) {
	_, body, ok := Build("booking.appointment.booked.v1", AppointmentEvent{Date: "2026-02-02", Start: "10:00"}, "")
	if !ok {
		t.Fatal("not ok")
	}
	if !strings.Contains(body, "Hi there, your appointment is booked") {
		t.Errorf("body %q missing fallbacks", body)
	}
}
