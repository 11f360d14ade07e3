//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/agenda-ai/agenda-backend/services/business-service/internal/storage"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *storage.Repository) error {
	return nil
}
