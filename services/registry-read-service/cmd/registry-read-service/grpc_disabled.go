//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/views"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *views.Repository) error {
	return nil
}
