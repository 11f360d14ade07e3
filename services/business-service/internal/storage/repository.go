package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agenda-ai/agenda-backend/libs/db"
)

var ErrNotFound = errors.New("storage: not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// BusinessProfile holds the booking-relevant settings of one business.
// OpenDays uses three-letter weekday codes ("Mon".."Sun"); open/close are
// minutes from midnight.
type BusinessProfile struct {
	BusinessID      string
	Name            string
	Slug            string
	Phone           string
	OpenDays        []string
	OpenMinute      int
	CloseMinute     int
	SlotGranularity int
}

func (r *Repository) GetOrCreateProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	// Create a default profile if missing so a fresh tenant can configure
	// itself through the same PUT flow.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id)
		VALUES ($1)
		ON CONFLICT (business_id) DO NOTHING
	`, businessID)
	if err != nil {
		return BusinessProfile{}, err
	}

	var p BusinessProfile
	err = r.pool.QueryRow(ctx, `
		SELECT business_id::text, name, slug, phone, open_days, open_minute, close_minute, slot_granularity_minutes
		FROM business_profiles
		WHERE business_id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Slug, &p.Phone, &p.OpenDays, &p.OpenMinute, &p.CloseMinute, &p.SlotGranularity)
	return p, err
}

func (r *Repository) GetProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	var p BusinessProfile
	err := r.pool.QueryRow(ctx, `
		SELECT business_id::text, name, slug, phone, open_days, open_minute, close_minute, slot_granularity_minutes
		FROM business_profiles
		WHERE business_id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Slug, &p.Phone, &p.OpenDays, &p.OpenMinute, &p.CloseMinute, &p.SlotGranularity)
	if errors.Is(err, pgx.ErrNoRows) {
		return BusinessProfile{}, ErrNotFound
	}
	return p, err
}

func (r *Repository) UpdateProfile(ctx context.Context, p BusinessProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles
			(business_id, name, slug, phone, open_days, open_minute, close_minute, slot_granularity_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (business_id) DO UPDATE
		SET name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			phone = EXCLUDED.phone,
			open_days = EXCLUDED.open_days,
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			slot_granularity_minutes = EXCLUDED.slot_granularity_minutes,
			updated_at = now()
	`, p.BusinessID, p.Name, p.Slug, p.Phone, p.OpenDays, p.OpenMinute, p.CloseMinute, p.SlotGranularity)
	return err
}

// ServiceItem is one row of the catalog. Combos and offers carry a
// pre-resolved total duration and price so consumers never need to expand
// the included services.
type ServiceItem struct {
	ID           string
	BusinessID   string
	Name         string
	Type         string // service | combo | offer
	DurationMins int
	PriceCents   int64
	Description  string
	IncludedIDs  []string
	CreatedAt    time.Time
}

func (r *Repository) CreateService(ctx context.Context, item ServiceItem) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_services
			(id, business_id, name, type, duration_minutes, price_cents, description, included_service_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, item.BusinessID, item.Name, item.Type, item.DurationMins, item.PriceCents, item.Description, item.IncludedIDs)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]ServiceItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, type, duration_minutes, price_cents, description,
			COALESCE(included_service_ids, '{}'), created_at
		FROM business_services
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceItem
	for rows.Next() {
		var s ServiceItem
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Type, &s.DurationMins, &s.PriceCents, &s.Description, &s.IncludedIDs, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetService(ctx context.Context, businessID, serviceID string) (ServiceItem, error) {
	var s ServiceItem
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, type, duration_minutes, price_cents, description,
			COALESCE(included_service_ids, '{}'), created_at
		FROM business_services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.Type, &s.DurationMins, &s.PriceCents, &s.Description, &s.IncludedIDs, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceItem{}, ErrNotFound
	}
	return s, err
}

// SumServices returns the aggregate duration and price of the given catalog
// entries, used to pre-resolve combos at creation time.
func (r *Repository) SumServices(ctx context.Context, businessID string, ids []string) (durationMins int, priceCents int64, err error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0), COALESCE(SUM(price_cents), 0)
		FROM business_services
		WHERE business_id = $1 AND id = ANY($2) AND type = 'service'
	`, businessID, ids).Scan(&durationMins, &priceCents)
	return durationMins, priceCents, err
}
