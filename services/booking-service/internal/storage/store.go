package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agenda-ai/agenda-backend/libs/db"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/outbox"
)

// blockingStatuses mirrors the WHERE clause of the appointments exclusion
// constraint. Keep the two in sync.
const blockingStatuses = "('pending', 'confirmed', 'in_progress')"

const appointmentColumns = `
	id::text, business_id::text, client_id::text, client_name, client_phone,
	COALESCE(service_id::text, ''), service_name,
	to_char(date, 'YYYY-MM-DD'), start_minute, end_minute, status,
	value_cents, cost_cents, payment_method, satisfaction_score,
	created_at, updated_at`

// Store is the Postgres implementation of booking.Store. Appointment
// mutations and their outbox events commit in one transaction; the
// exclusion constraint on appointments is the commit-time overlap guard.
type Store struct {
	pool *db.Pool
	box  *outbox.Repository
}

func New(pool *db.Pool, box *outbox.Repository) *Store {
	return &Store{pool: pool, box: box}
}

func (s *Store) CreateAppointment(ctx context.Context, appt booking.Appointment, client booking.Client) (booking.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return booking.Appointment{}, unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	clientID, clientEmail, err := s.resolveClient(ctx, tx, client)
	if err != nil {
		return booking.Appointment{}, unavailable(err)
	}
	appt.ClientID = clientID

	if appt.Status.Blocking() {
		if err := s.lockOverlapping(ctx, tx, appt, ""); err != nil {
			return booking.Appointment{}, err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, business_id, client_id, client_name, client_phone, service_id, service_name,
			date, start_minute, end_minute, status, value_cents, cost_cents)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8::date, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, appt.ID, appt.BusinessID, appt.ClientID, appt.ClientName, appt.ClientPhone,
		appt.ServiceID, appt.ServiceName, appt.Date, int(appt.Start), int(appt.End),
		string(appt.Status), appt.ValueCents, appt.CostCents,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return booking.Appointment{}, mapError(err)
	}

	if err := s.insertEvent(ctx, tx, outbox.EventAppointmentBooked, appt, clientEmail); err != nil {
		return booking.Appointment{}, unavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return booking.Appointment{}, mapError(err)
	}
	return appt, nil
}

func (s *Store) GetAppointment(ctx context.Context, businessID, id string) (booking.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
	`, id, businessID)
	appt, err := scanAppointment(row)
	if err != nil {
		return booking.Appointment{}, mapError(err)
	}
	return appt, nil
}

func (s *Store) UpdateAppointment(ctx context.Context, appt booking.Appointment, expect booking.Status) (booking.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return booking.Appointment{}, unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prev, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
		FOR UPDATE
	`, appt.ID, appt.BusinessID))
	if err != nil {
		return booking.Appointment{}, mapError(err)
	}
	if prev.Status != expect {
		// Status raced away under us; callers re-fetch and re-validate.
		return booking.Appointment{}, booking.ErrNotFound
	}

	if appt.Status.Blocking() {
		if err := s.lockOverlapping(ctx, tx, appt, appt.ID); err != nil {
			return booking.Appointment{}, err
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET date = $3::date,
			start_minute = $4,
			end_minute = $5,
			status = $6,
			payment_method = $7,
			satisfaction_score = $8,
			updated_at = now()
		WHERE id = $1 AND business_id = $2
		RETURNING updated_at
	`, appt.ID, appt.BusinessID, appt.Date, int(appt.Start), int(appt.End),
		string(appt.Status), appt.PaymentMethod, appt.SatisfactionScore,
	).Scan(&appt.UpdatedAt)
	if err != nil {
		return booking.Appointment{}, mapError(err)
	}
	appt.ClientID = prev.ClientID
	appt.CreatedAt = prev.CreatedAt

	if eventType := eventForUpdate(prev, appt); eventType != "" {
		email, err := s.clientEmail(ctx, tx, appt.BusinessID, appt.ClientID)
		if err != nil {
			return booking.Appointment{}, unavailable(err)
		}
		if err := s.insertEvent(ctx, tx, eventType, appt, email); err != nil {
			return booking.Appointment{}, unavailable(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return booking.Appointment{}, mapError(err)
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, businessID, from, to string) ([]booking.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date, start_minute
	`, businessID, from, to)
	if err != nil {
		return nil, unavailable(err)
	}
	return collectAppointments(rows)
}

func (s *Store) BlockedIntervals(ctx context.Context, businessID, date, excludeID string) ([]availability.Interval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE business_id = $1
			AND date = $2::date
			AND status IN `+blockingStatuses+`
			AND ($3 = '' OR id != $3::uuid)
		ORDER BY start_minute
	`, businessID, date, excludeID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var start, end int
		if err := rows.Scan(&start, &end); err != nil {
			return nil, unavailable(err)
		}
		intervals = append(intervals, availability.Interval{
			Start: availability.TimeOfDay(start),
			End:   availability.TimeOfDay(end),
		})
	}
	if rows.Err() != nil {
		return nil, unavailable(rows.Err())
	}
	return intervals, nil
}

func (s *Store) ListClients(ctx context.Context, businessID string) ([]booking.Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, phone, email, notes, created_at
		FROM clients
		WHERE business_id = $1
		ORDER BY name
	`, businessID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var clients []booking.Client
	for rows.Next() {
		var c booking.Client
		if err := rows.Scan(&c.ID, &c.BusinessID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedAt); err != nil {
			return nil, unavailable(err)
		}
		clients = append(clients, c)
	}
	if rows.Err() != nil {
		return nil, unavailable(rows.Err())
	}
	return clients, nil
}

func (s *Store) ListClientAppointments(ctx context.Context, businessID, clientID string) ([]booking.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND client_id = $2
		ORDER BY date DESC, start_minute DESC
	`, businessID, clientID)
	if err != nil {
		return nil, unavailable(err)
	}
	return collectAppointments(rows)
}

// lockOverlapping locks blocking rows that would overlap the written
// interval. Any hit is a conflict; the exclusion constraint backstops the
// window between this check and commit.
func (s *Store) lockOverlapping(ctx context.Context, tx pgx.Tx, appt booking.Appointment, excludeID string) error {
	rows, err := tx.Query(ctx, `
		SELECT id
		FROM appointments
		WHERE business_id = $1
			AND date = $2::date
			AND status IN `+blockingStatuses+`
			AND start_minute < $4
			AND end_minute > $3
			AND ($5 = '' OR id != $5::uuid)
		FOR UPDATE
	`, appt.BusinessID, appt.Date, int(appt.Start), int(appt.End), excludeID)
	if err != nil {
		return unavailable(err)
	}
	defer rows.Close()

	if rows.Next() {
		return booking.ErrSlotConflict
	}
	return unavailableOrNil(rows.Err())
}

func (s *Store) resolveClient(ctx context.Context, tx pgx.Tx, client booking.Client) (id, email string, err error) {
	if client.Phone != "" {
		err = tx.QueryRow(ctx, `
			SELECT id::text, email FROM clients
			WHERE business_id = $1 AND phone = $2
			LIMIT 1
		`, client.BusinessID, client.Phone).Scan(&id, &email)
		if err == nil {
			return id, email, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", "", err
		}
	}

	err = tx.QueryRow(ctx, `
		SELECT id::text, email FROM clients
		WHERE business_id = $1 AND lower(name) = lower($2)
		LIMIT 1
	`, client.BusinessID, client.Name).Scan(&id, &email)
	if err == nil {
		return id, email, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", "", err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO clients (business_id, name, phone, email, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, client.BusinessID, client.Name, client.Phone, client.Email, client.Notes).Scan(&id)
	if err != nil {
		return "", "", err
	}
	return id, client.Email, nil
}

func (s *Store) clientEmail(ctx context.Context, tx pgx.Tx, businessID, clientID string) (string, error) {
	var email string
	err := tx.QueryRow(ctx, `
		SELECT email FROM clients WHERE business_id = $1 AND id = $2
	`, businessID, clientID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return email, err
}

func (s *Store) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, appt booking.Appointment, clientEmail string) error {
	evt, err := outbox.NewAppointmentEvent(eventType, outbox.AppointmentPayload{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		ClientName:    appt.ClientName,
		ClientPhone:   appt.ClientPhone,
		ClientEmail:   clientEmail,
		ServiceName:   appt.ServiceName,
		Date:          appt.Date,
		Start:         appt.Start.String(),
		End:           appt.End.String(),
		Status:        string(appt.Status),
	})
	if err != nil {
		return err
	}
	return s.box.Insert(ctx, tx, evt)
}

func eventForUpdate(prev, next booking.Appointment) string {
	switch {
	case next.Status == booking.StatusCanceled && prev.Status != booking.StatusCanceled:
		return outbox.EventAppointmentCanceled
	case next.Status == booking.StatusCompleted && prev.Status != booking.StatusCompleted:
		return outbox.EventAppointmentCompleted
	case prev.Date != next.Date || prev.Start != next.Start || prev.End != next.End:
		return outbox.EventAppointmentRescheduled
	}
	return ""
}

func scanAppointment(row pgx.Row) (booking.Appointment, error) {
	var (
		appt       booking.Appointment
		start, end int
		status     string
	)
	err := row.Scan(
		&appt.ID, &appt.BusinessID, &appt.ClientID, &appt.ClientName, &appt.ClientPhone,
		&appt.ServiceID, &appt.ServiceName,
		&appt.Date, &start, &end, &status,
		&appt.ValueCents, &appt.CostCents, &appt.PaymentMethod, &appt.SatisfactionScore,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return booking.Appointment{}, err
	}
	appt.Start = availability.TimeOfDay(start)
	appt.End = availability.TimeOfDay(end)
	appt.Status = booking.Status(status)
	return appt, nil
}

func collectAppointments(rows pgx.Rows) ([]booking.Appointment, error) {
	defer rows.Close()

	var appts []booking.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, unavailable(rows.Err())
	}
	return appts, nil
}

// mapError translates driver errors into the domain taxonomy. 23P01 is the
// appointments exclusion constraint firing.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsConflict(err):
		return booking.ErrSlotConflict
	case IsNotFound(err):
		return booking.ErrNotFound
	default:
		return unavailable(err)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
}

func unavailableOrNil(err error) error {
	if err == nil {
		return nil
	}
	return unavailable(err)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
