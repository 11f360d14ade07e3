package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agenda-ai/agenda-backend/libs/auth"
	"github.com/agenda-ai/agenda-backend/libs/config"
	"github.com/agenda-ai/agenda-backend/libs/db"
	"github.com/agenda-ai/agenda-backend/libs/httpx"
	"github.com/agenda-ai/agenda-backend/libs/kafkax"
	otelx "github.com/agenda-ai/agenda-backend/libs/otel"
	"github.com/agenda-ai/agenda-backend/libs/runtime"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/booking"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/handlers"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/hours"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/outbox"
	"github.com/agenda-ai/agenda-backend/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8081")
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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	store := storage.New(pool, outboxRepo)

	configProvider := buildConfigProvider(logger)
	svc := booking.NewService(store, configProvider)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	apptHandler := handlers.NewAppointmentHandler(svc, logger)
	clientHandler := handlers.NewClientHandler(svc, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	public := publicMiddleware(ctx, logger)
	mux.Handle("/api/v1/public/slots", httpx.Chain(http.HandlerFunc(apptHandler.Slots), public...))
	mux.Handle("/api/v1/public/book", httpx.Chain(http.HandlerFunc(apptHandler.PublicBook), public...))

	internal := internalMiddleware(logger)
	registerInternal := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, httpx.Chain(h, internal...))
	}
	registerInternal("/api/v1/appointments", dispatch(apptHandler.List, apptHandler.Create))
	registerInternal("/api/v1/appointments/start", apptHandler.Start)
	registerInternal("/api/v1/appointments/finish", apptHandler.Finish)
	registerInternal("/api/v1/appointments/cancel", apptHandler.Cancel)
	registerInternal("/api/v1/appointments/reschedule", apptHandler.Reschedule)
	registerInternal("/api/v1/appointments/move", apptHandler.Move)
	registerInternal("/api/v1/clients", clientHandler.List)
	registerInternal("/api/v1/clients/appointments", clientHandler.Appointments)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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

// buildConfigProvider prefers the business-service gRPC endpoint and falls
// back to a single static working window from the environment.
func buildConfigProvider(logger *slog.Logger) booking.ConfigProvider {
	if addr := config.String("BUSINESS_GRPC_ADDR", ""); addr != "" {
		provider, err := hours.NewGRPCProvider(addr)
		if err != nil {
			logger.Error("business config provider init failed; using static hours", "err", err)
		} else if provider != nil {
			return provider
		}
	}

	static, err := hours.NewStaticProvider(
		config.List("OPEN_DAYS", []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}),
		config.String("OPEN_TIME", "09:00"),
		config.String("CLOSE_TIME", "18:00"),
		config.Int("DEFAULT_DURATION_MINUTES", 30),
		config.Int("SLOT_GRANULARITY_MINUTES", 30),
	)
	if err != nil {
		panic(err)
	}
	return static
}

// publicMiddleware rate limits and opens CORS for the embedded booking widget.
func publicMiddleware(ctx context.Context, logger *slog.Logger) []httpx.Middleware {
	chain := []httpx.Middleware{
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("PUBLIC_CORS_ORIGINS", []string{"*"}),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
	}

	limit := config.Int("PUBLIC_RATE_LIMIT", 60)
	window := config.Duration("PUBLIC_RATE_WINDOW", time.Minute)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup; rate limiter will fail open", "err", err)
		}
		rl := httpx.NewRedisRateLimiter(rdb, limit, window, "booking:public")
		chain = append(chain, rl.Middleware(logger, true))
		return chain
	}
	chain = append(chain, httpx.NewRateLimiter(limit, window).Middleware())
	return chain
}

// internalMiddleware verifies bearer tokens when AUTH_JWT_SECRET is set;
// otherwise the X-Business-Id header from the gateway is trusted as-is.
func internalMiddleware(logger *slog.Logger) []httpx.Middleware {
	secret := config.String("AUTH_JWT_SECRET", "")
	if secret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; trusting X-Business-Id header")
		return nil
	}
	return []httpx.Middleware{auth.RequireBusiness(auth.NewVerifier(secret))}
}

func dispatch(get, post http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodPost:
			post(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
