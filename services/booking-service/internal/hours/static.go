package hours

import (
	"context"

	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
)

// StaticProvider serves one fixed working window for every business. It is
// the fallback when the business settings service is not configured.
type StaticProvider struct {
	cfg booking.Config
}

func NewStaticProvider(openDays []string, open, closeAt string, durationMinutes, granularity int) (*StaticProvider, error) {
	openTOD, err := availability.ParseTimeOfDay(open)
	if err != nil {
		return nil, err
	}
	closeTOD, err := availability.ParseTimeOfDay(closeAt)
	if err != nil {
		return nil, err
	}
	if openTOD >= closeTOD {
		return nil, availability.ErrInvalidBusinessHours
	}
	if durationMinutes <= 0 {
		return nil, availability.ErrInvalidDuration
	}
	return &StaticProvider{cfg: booking.Config{
		Hours: availability.BusinessHours{
			OpenDays: openDays,
			Open:     openTOD,
			Close:    closeTOD,
		},
		DurationMinutes: durationMinutes,
		Granularity:     granularity,
	}}, nil
}

func (p *StaticProvider) BookingConfig(context.Context, string, string) (booking.Config, error) {
	return p.cfg, nil
}
