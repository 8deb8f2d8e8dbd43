package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/auth"
	"github.com/md-rashed-zaman/orderflow/libs/config"
	"github.com/md-rashed-zaman/orderflow/libs/httpx"
	otelx "github.com/md-rashed-zaman/orderflow/libs/otel"
	"github.com/md-rashed-zaman/orderflow/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "gateway-service")
	port, err := config.Port("PORT", "8080")
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

	mux := runtime.NewBaseMuxWithReady()
	jwtSecret := config.String("JWT_SECRET", "dev-secret")
	jwksURL := config.String("JWKS_URL", "")
	jwksTTL, err := strconv.Atoi(config.String("JWKS_CACHE_SECONDS", "300"))
	if err != nil || jwksTTL <= 0 {
		jwksTTL = 300
	}
	registerRoutes(mux, jwtSecret, jwksURL, time.Duration(jwksTTL)*time.Second)

	bodyLimit := int64(1 << 20) // 1MB
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}
	requestTimeout := 10 * time.Second
	if v, err := strconv.Atoi(config.String("REQUEST_TIMEOUT_SECONDS", "10")); err == nil && v > 0 {
		requestTimeout = time.Duration(v) * time.Second
	}

	limitPerMinute := 60
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "60")); err == nil && v > 0 {
		limitPerMinute = v
	}

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           time.Duration(corsMaxAgeSeconds()) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "gateway")
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

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func corsMaxAgeSeconds() int {
	value := 600
	if v, err := strconv.Atoi(config.String("CORS_MAX_AGE_SECONDS", "600")); err == nil && v > 0 {
		value = v
	}
	return value
}

// registerRoutes wires the edge: commands go to the write-side registry
// service behind auth, queries and streams go to the read side.
func registerRoutes(mux *http.ServeMux, jwtSecret string, jwksURL string, jwksTTL time.Duration) {
	registryURL := mustParseURL(config.String("REGISTRY_URL", "http://registry-service:8091"))
	readURL := mustParseURL(config.String("REGISTRY_READ_URL", "http://registry-read-service:8092"))

	registryProxy := httputil.NewSingleHostReverseProxy(registryURL)
	readProxy := httputil.NewSingleHostReverseProxy(readURL)
	otelTransport := otelhttp.NewTransport(http.DefaultTransport)
	registryProxy.Transport = otelTransport
	readProxy.Transport = otelTransport

	// The stream proxy must not buffer; each SSE event flushes through as it arrives.
	streamProxy := httputil.NewSingleHostReverseProxy(readURL)
	streamProxy.Transport = otelTransport
	streamProxy.FlushInterval = -1

	var jwksClient *auth.JWKSClient
	if jwksURL != "" {
		jwksClient = auth.NewJWKSClient(jwksURL, jwksTTL)
	}

	registerProxy(mux, "/api/v1/products/register", requireAuth(requireRole(registryProxy, "editor", "admin"), jwtSecret, jwksClient))
	registerProxy(mux, "/api/v1/products/update-name", requireAuth(requireRole(registryProxy, "editor", "admin"), jwtSecret, jwksClient))
	registerProxy(mux, "/api/v1/products/update-description", requireAuth(requireRole(registryProxy, "editor", "admin"), jwtSecret, jwksClient))
	registerProxy(mux, "/api/v1/products/retire", requireAuth(requireRole(registryProxy, "editor", "admin"), jwtSecret, jwksClient))
	registerProxy(mux, "/api/v1/admin/products/rebuild", requireAuth(requireRole(readProxy, "admin"), jwtSecret, jwksClient))

	// Reads and the live stream are public.
	registerProxy(mux, "/api/v1/products/get", readProxy)
	registerProxy(mux, "/api/v1/products/search", readProxy)
	registerProxy(mux, "/api/v1/products/stream", streamProxy)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func requireAuth(next http.Handler, jwtSecret string, jwksClient *auth.JWKSClient) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := verifyToken(token, jwtSecret, jwksClient)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Del("X-User-Id")
		r.Header.Del("X-Role")
		r.Header.Set("X-User-Id", claims.Sub)
		r.Header.Set("X-Role", claims.Role)
		next.ServeHTTP(w, r)
	})
}

// verifyToken prefers RS256 through the JWKS client when one is configured
// and the token names a key, and falls back to the shared HS256 secret.
func verifyToken(token, jwtSecret string, jwksClient *auth.JWKSClient) (*auth.Claims, error) {
	if jwksClient != nil {
		header, err := auth.ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := jwksClient.Get(header.Kid)
			if err != nil {
				return nil, err
			}
			return auth.VerifyRS256(token, pub)
		}
	}
	return auth.ParseAndVerifyHS256(token, jwtSecret)
}

func requireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role")
		if _, ok := allowed[role]; !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}
