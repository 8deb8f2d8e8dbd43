package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/auth"
	"github.com/md-rashed-zaman/orderflow/libs/config"
	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/db"
	"github.com/md-rashed-zaman/orderflow/libs/httpx"
	otelx "github.com/md-rashed-zaman/orderflow/libs/otel"
	"github.com/md-rashed-zaman/orderflow/libs/runtime"
	"github.com/md-rashed-zaman/orderflow/services/registry-service/internal/handlers"
	"github.com/md-rashed-zaman/orderflow/services/registry-service/internal/registry"
	"github.com/md-rashed-zaman/orderflow/services/registry-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "registry-service")
	port, err := config.Port("PORT", "8091")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewProductRepository(pool)
	eventLog := cqrs.NewEventLogRepository(pool)
	outboxRepo := cqrs.NewOutboxRepository(pool)
	svc := registry.NewService(repo, eventLog, outboxRepo, logger)
	productHandler := handlers.NewProductHandler(svc, logger)

	jwtSecret := strings.TrimSpace(config.String("JWT_SECRET", ""))
	guard := func(h http.HandlerFunc) http.Handler {
		if jwtSecret == "" {
			return h
		}
		return requireAuth(h, jwtSecret)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.Handle("/api/v1/products/register", guard(productHandler.Register))
	mux.Handle("/api/v1/products/update-name", guard(productHandler.UpdateName))
	mux.Handle("/api/v1/products/update-description", guard(productHandler.UpdateDescription))
	mux.Handle("/api/v1/products/retire", guard(productHandler.Retire))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "registry")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func requireAuth(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := auth.ParseAndVerifyHS256(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Set("X-User-Id", claims.Sub)
		r.Header.Set("X-Role", claims.Role)
		next.ServeHTTP(w, r)
	})
}
