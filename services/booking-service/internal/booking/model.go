package booking

import (
	"time"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
	StatusReschedule Status = "reschedule"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCanceled, StatusReschedule:
		return true
	}
	return false
}

// Terminal statuses accept no further lifecycle operations except the
// idempotent re-cancel.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Blocking statuses occupy their time interval for availability purposes.
// An appointment awaiting reschedule does not hold its old slot.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

// Known payment methods. Finish accepts free text too; these are the
// catalog the UI offers.
const (
	PaymentPix    = "pix"
	PaymentCredit = "credit"
	PaymentDebit  = "debit"
	PaymentCash   = "cash"
)

type Appointment struct {
	ID          string
	BusinessID  string
	ClientID    string
	ClientName  string
	ClientPhone string
	ServiceID   string
	ServiceName string
	Date        string // YYYY-MM-DD
	Start       availability.TimeOfDay
	End         availability.TimeOfDay
	Status      Status
	ValueCents  int64
	CostCents   int64
	PaymentMethod     string
	SatisfactionScore *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a Appointment) Interval() availability.Interval {
	return availability.Interval{Start: a.Start, End: a.End}
}

type Client struct {
	ID         string
	BusinessID string
	Name       string
	Phone      string
	Email      string
	Notes      string
	CreatedAt  time.Time
}
