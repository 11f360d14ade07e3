package storage

import (
	"context"

	"github.com/agenda-ai/agenda-backend/libs/db"
)

// Notification is the audit record of one delivery attempt.
type Notification struct {
	AppointmentID string
	BusinessID    string
	EventType     string
	Channel       string
	Recipient     string
	Subject       string
	Body          string
	Status        string // sent | failed | skipped
	FailReason    string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(appointment_id, business_id, event_type, channel, recipient, subject, body, status, fail_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.AppointmentID, n.BusinessID, n.EventType, n.Channel, n.Recipient, n.Subject, n.Body, n.Status, n.FailReason)
	return err
}
