//go:build !protogen

package hours

import (
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
)

// NewGRPCProvider is a stub in builds without generated proto code.
func NewGRPCProvider(_ string) (booking.ConfigProvider, error) {
	return nil, nil
}
