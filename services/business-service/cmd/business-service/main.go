package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agenda-ai/agenda-backend/libs/auth"
	"github.com/agenda-ai/agenda-backend/libs/config"
	"github.com/agenda-ai/agenda-backend/libs/db"
	"github.com/agenda-ai/agenda-backend/libs/httpx"
	otelx "github.com/agenda-ai/agenda-backend/libs/otel"
	"github.com/agenda-ai/agenda-backend/libs/runtime"
	"github.com/agenda-ai/agenda-backend/services/business-service/internal/handlers"
	"github.com/agenda-ai/agenda-backend/services/business-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "business-service")
	port, err := config.Port("PORT", "8082")
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
		MaxConns: int32(config.Int("DB_MAX_CONNS", 5)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)
	handler := handlers.New(repo, logger)

	if err := startGrpcServer(ctx, logger, repo); err != nil {
		logger.Error("grpc server start failed", "err", err)
		panic(err)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)

	internal := internalMiddleware(logger)
	mux.Handle("/api/v1/business/profile", httpx.Chain(dispatch(handler.GetProfile, nil, handler.UpdateProfile), internal...))
	mux.Handle("/api/v1/business/services", httpx.Chain(dispatch(handler.ListServices, handler.CreateService, nil), internal...))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "business")
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

func internalMiddleware(logger *slog.Logger) []httpx.Middleware {
	secret := config.String("AUTH_JWT_SECRET", "")
	if secret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; trusting X-Business-Id header")
		return nil
	}
	return []httpx.Middleware{auth.RequireBusiness(auth.NewVerifier(secret))}
}

func dispatch(get, post, put http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && get != nil:
			get(w, r)
		case r.Method == http.MethodPost && post != nil:
			post(w, r)
		case r.Method == http.MethodPut && put != nil:
			put(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
