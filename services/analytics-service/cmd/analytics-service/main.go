package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/config"
	"github.com/md-rashed-zaman/orderflow/libs/db"
	"github.com/md-rashed-zaman/orderflow/libs/httpx"
	"github.com/md-rashed-zaman/orderflow/libs/kafkax"
	otelx "github.com/md-rashed-zaman/orderflow/libs/otel"
	"github.com/md-rashed-zaman/orderflow/libs/runtime"
	"github.com/md-rashed-zaman/orderflow/services/analytics-service/internal/consumer"
	"github.com/md-rashed-zaman/orderflow/services/analytics-service/internal/inbox"
	"github.com/md-rashed-zaman/orderflow/services/analytics-service/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8093")
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

	inboxRepo := inbox.NewRepository(pool)
	metricsRepo := metrics.NewRepository(pool)

	eventsCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "analytics-service"),
		Topic:   config.String("KAFKA_TOPIC", "registry.product.events.v1"),
	}
	eventsConsumer := consumer.New(logger, inboxRepo, eventsCfg, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			Type       string `json:"type"`
			ProductID  string `json:"productId"`
			Sequence   int64  `json:"sequence"`
			OccurredAt string `json:"occurredAt"`
		}

		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err)
			return nil
		}
		if payload.Type == "" || payload.ProductID == "" || payload.OccurredAt == "" {
			logger.Error("missing event fields")
			return nil
		}
		occurredAt, err := time.Parse(time.RFC3339, payload.OccurredAt)
		if err != nil {
			logger.Error("invalid occurredAt", "err", err)
			return nil
		}

		meta := kafkax.ExtractEventMeta(msg)
		if err := metricsRepo.RecordEvent(ctx, metrics.Event{
			ID:         meta.EventID,
			Type:       payload.Type,
			ProductID:  payload.ProductID,
			Sequence:   payload.Sequence,
			OccurredAt: occurredAt,
		}); err != nil {
			logger.Error("failed to record catalog event", "err", err)
			return err
		}

		logger.Info("catalog event recorded", "product_id", payload.ProductID, "event_type", payload.Type)
		return nil
	})
	go eventsConsumer.Run(ctx)

	go runInboxJanitor(ctx, logger, inboxRepo)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/analytics/daily", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		day := time.Now().UTC()
		if raw := r.URL.Query().Get("day"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			day = parsed
		}
		totals, err := metricsRepo.DailyTotals(r.Context(), day)
		if err != nil {
			logger.Error("daily totals query failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(totals)
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
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

// runInboxJanitor prunes dedupe claims older than the broker's retention
// window once an hour.
func runInboxJanitor(ctx context.Context, logger *slog.Logger, inboxRepo *inbox.Repository) {
	retention := 7 * 24 * time.Hour
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := inboxRepo.PruneBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("inbox prune failed", "err", err)
				continue
			}
			if pruned > 0 {
				logger.Info("inbox pruned", "rows", pruned)
			}
		}
	}
}
