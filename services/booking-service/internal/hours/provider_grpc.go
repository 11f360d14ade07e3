//go:build protogen

package hours

import (
	"context"

	"github.com/agenda-ai/agenda-backend/libs/grpcx"
	businessv1 "github.com/agenda-ai/agenda-backend/protos/gen/business/v1"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/availability"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
)

type grpcProvider struct {
	client businessv1.BusinessConfigServiceClient
}

// NewGRPCProvider connects to the business settings service. An empty
// address means the provider is not configured; callers fall back to the
// static provider.
func NewGRPCProvider(addr string) (booking.ConfigProvider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(addr)
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: businessv1.NewBusinessConfigServiceClient(conn)}, nil
}

func (p *grpcProvider) BookingConfig(ctx context.Context, businessID, serviceID string) (booking.Config, error) {
	resp, err := p.client.GetBookingConfig(ctx, &businessv1.BookingConfigRequest{
		BusinessId: businessID,
		ServiceId:  serviceID,
	})
	if err != nil {
		return booking.Config{}, err
	}

	open, err := availability.ParseTimeOfDay(resp.GetOpenTime())
	if err != nil {
		return booking.Config{}, err
	}
	closeAt, err := availability.ParseTimeOfDay(resp.GetCloseTime())
	if err != nil {
		return booking.Config{}, err
	}

	return booking.Config{
		Hours: availability.BusinessHours{
			OpenDays: resp.GetOpenDays(),
			Open:     open,
			Close:    closeAt,
		},
		DurationMinutes: int(resp.GetDurationMinutes()),
		Granularity:     int(resp.GetSlotGranularityMinutes()),
	}, nil
}
