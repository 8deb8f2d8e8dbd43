package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/config"
	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/db"
	"github.com/md-rashed-zaman/orderflow/libs/httpx"
	"github.com/md-rashed-zaman/orderflow/libs/kafkax"
	otelx "github.com/md-rashed-zaman/orderflow/libs/otel"
	"github.com/md-rashed-zaman/orderflow/libs/runtime"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/broadcast"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/handlers"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/poller"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/projection"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/relay"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/views"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "registry-read-service")
	port, err := config.Port("PORT", "8092")
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eventLog := cqrs.NewEventLogRepository(pool)
	outboxRepo := cqrs.NewOutboxRepository(pool)
	viewRepo := views.NewRepository(pool)
	bus := broadcast.NewBroadcaster()
	dispatcher := projection.NewDispatcher(viewRepo, bus, logger)

	pollerCfg := poller.Config{
		Partitions:   intEnv("POLLER_PARTITIONS", 0),
		BatchSize:    intEnv("POLLER_BATCH_SIZE", 10),
		PollInterval: durationEnv("POLLER_INTERVAL_MS", 1000),
		MaxRetries:   intEnv("POLLER_MAX_RETRIES", 3),
		RetryDelay:   durationEnv("POLLER_RETRY_DELAY_MS", 30000),
	}
	outboxPoller := poller.New(outboxRepo, dispatcher, logger, registry, pollerCfg)
	go outboxPoller.Run(ctx)

	notifier := relay.NewNotifier(bus, logger, relay.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		Topic:   config.String("KAFKA_NOTIFY_TOPIC", "registry.product.events.v1"),
	})
	go notifier.Run(ctx)

	if err := startGrpcServer(ctx, logger, viewRepo); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	queryHandler := handlers.NewQueryHandler(viewRepo, logger)
	streamHandler := handlers.NewStreamHandler(bus, logger)
	rebuildHandler := handlers.NewRebuildHandler(eventLog, viewRepo, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/products/get", queryHandler.Get)
	mux.HandleFunc("/api/v1/products/search", queryHandler.Search)
	mux.HandleFunc("/api/v1/products/stream", streamHandler.Stream)
	mux.HandleFunc("/api/v1/admin/products/rebuild", rebuildHandler.Rebuild)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	limitPerMinute := intEnv("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       intEnv("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, true)
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "registry-read")
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

func intEnv(name string, fallback int) int {
	v, err := strconv.Atoi(config.String(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func durationEnv(name string, fallbackMS int) time.Duration {
	return time.Duration(intEnv(name, fallbackMS)) * time.Millisecond
}
