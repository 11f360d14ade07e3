//go:build protogen

package grpcserver

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	businessv1 "github.com/agenda-ai/agenda-backend/protos/gen/business/v1"
	"github.com/agenda-ai/agenda-backend/services/business-service/internal/storage"
)

type server struct {
	businessv1.UnimplementedBusinessConfigServiceServer
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, repo *storage.Repository) {
	businessv1.RegisterBusinessConfigServiceServer(grpcServer, &server{repo: repo})
}

// GetBookingConfig answers with the business working window plus the duration
// of the requested catalog entry. Missing profile data falls back to a
// standard Mon-Sat 09:00-18:00 window so the booking flow keeps working for
// tenants that never touched their settings.
func (s *server) GetBookingConfig(ctx context.Context, req *businessv1.BookingConfigRequest) (*businessv1.BookingConfigResponse, error) {
	resp := &businessv1.BookingConfigResponse{
		OpenDays:               []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		OpenTime:               "09:00",
		CloseTime:              "18:00",
		DurationMinutes:        30,
		SlotGranularityMinutes: 30,
	}
	if req.GetBusinessId() == "" {
		return resp, nil
	}

	p, err := s.repo.GetOrCreateProfile(ctx, req.GetBusinessId())
	if err != nil {
		return nil, err
	}
	if len(p.OpenDays) > 0 && p.CloseMinute > p.OpenMinute {
		resp.OpenDays = p.OpenDays
		resp.OpenTime = clock(p.OpenMinute)
		resp.CloseTime = clock(p.CloseMinute)
	}
	if p.SlotGranularity > 0 {
		resp.SlotGranularityMinutes = int32(p.SlotGranularity)
	}

	if req.GetServiceId() != "" {
		item, err := s.repo.GetService(ctx, req.GetBusinessId(), req.GetServiceId())
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if err == nil && item.DurationMins > 0 {
			resp.DurationMinutes = int32(item.DurationMins)
		}
	}
	return resp, nil
}

func clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
