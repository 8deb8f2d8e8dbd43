//go:build protogen

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/orderflow/libs/config"
	"github.com/md-rashed-zaman/orderflow/libs/grpcx"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/grpcserver"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/views"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

func startGrpcServer(ctx context.Context, logger *slog.Logger, viewRepo *views.Repository) error {
	port, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerRequestIDInterceptor()),
	)
	grpcserver.Register(srv, viewRepo)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return nil
}
