package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agenda-ai/agenda-backend/libs/config"
	"github.com/agenda-ai/agenda-backend/libs/db"
	"github.com/agenda-ai/agenda-backend/libs/httpx"
	"github.com/agenda-ai/agenda-backend/libs/kafkax"
	otelx "github.com/agenda-ai/agenda-backend/libs/otel"
	"github.com/agenda-ai/agenda-backend/libs/runtime"
	"github.com/agenda-ai/agenda-backend/services/notification-service/internal/consumer"
	"github.com/agenda-ai/agenda-backend/services/notification-service/internal/email"
	"github.com/agenda-ai/agenda-backend/services/notification-service/internal/inbox"
	"github.com/agenda-ai/agenda-backend/services/notification-service/internal/message"
	"github.com/agenda-ai/agenda-backend/services/notification-service/internal/storage"
)

// Topics carrying client-facing appointment changes. Completed events are
// internal bookkeeping and send nothing.
var appointmentTopics = []string{
	"booking.appointment.booked.v1",
	"booking.appointment.canceled.v1",
	"booking.appointment.rescheduled.v1",
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@agenda.local"),
	)
	businessName := config.String("BUSINESS_DISPLAY_NAME", "")

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	for _, topic := range appointmentTopics {
		topic := topic
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			return handleAppointmentEvent(ctx, logger, notificationsRepo, emailSender, businessName, topic, msg)
		})
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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

func handleAppointmentEvent(ctx context.Context, logger *slog.Logger, repo *storage.Repository, sender email.Sender, businessName string, topic string, msg kafka.Message) error {
	var ev message.AppointmentEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		logger.Error("invalid appointment payload", "err", err, "topic", topic)
		return nil
	}
	if ev.AppointmentID == "" || ev.BusinessID == "" {
		logger.Error("missing appointment fields", "topic", topic)
		return nil
	}

	subject, body, ok := message.Build(topic, ev, businessName)
	if !ok {
		return nil
	}

	record := storage.Notification{
		AppointmentID: ev.AppointmentID,
		BusinessID:    ev.BusinessID,
		EventType:     topic,
		Channel:       "email",
		Recipient:     ev.ClientEmail,
		Subject:       subject,
		Body:          body,
	}

	if ev.ClientEmail == "" {
		record.Status = "skipped"
		record.FailReason = "client has no email on file"
	} else if err := sender.Send(ev.ClientEmail, subject, body); err != nil {
		record.Status = "failed"
		record.FailReason = err.Error()
		logger.Error("email send failed", "err", err, "recipient", ev.ClientEmail)
	} else {
		record.Status = "sent"
	}

	if err := repo.Insert(ctx, record); err != nil {
		logger.Error("failed to persist notification", "err", err)
		return err
	}

	logger.Info("appointment event processed",
		"appointment_id", ev.AppointmentID, "event_type", topic, "status", record.Status)
	return nil
}
