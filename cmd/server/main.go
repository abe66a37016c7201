// Server runs the presence-tracking HTTP API: event triggers, the polled
// stats endpoint, health probes, and the background expiry sweeper.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"presence-tracker/internal/config"
	"presence-tracker/internal/db"
	"presence-tracker/internal/db/migrate"
	"presence-tracker/internal/security"
	"presence-tracker/internal/server"
	"presence-tracker/internal/sweeper"
	"presence-tracker/internal/telemetry"
	"presence-tracker/internal/telemetry/otel"
	"presence-tracker/internal/telemetry/producer"
	trackingrepo "presence-tracker/internal/tracking/repository"
	trackingservice "presence-tracker/internal/tracking/service"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "presence-tracker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("migrate")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db open")
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "presence-tracker", cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel providers")
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Event emitter: Kafka when brokers are configured, otherwise the OTel
	// log pipeline (no-op when export is disabled).
	var emitter telemetry.EventEmitter
	if brokers := cfg.EventsKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err := producer.NewKafkaProducer(brokers, cfg.EventsKafkaTopic)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka producer")
		}
		defer kafkaProducer.Close()
		emitter = kafkaProducer
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.EventsKafkaTopic).Msg("event stream: kafka")
	} else {
		emitter = otel.NewEventEmitter(providers.LoggerProvider)
	}

	repo := trackingrepo.NewPostgresRepository(conn)
	svc := trackingservice.NewTrackingService(repo, nil, cfg.Location(), logger)

	var tokens *security.TokenProvider
	if cfg.EventJWTSecret != "" {
		tokens = security.NewTokenProvider([]byte(cfg.EventJWTSecret), "auth-service", "presence-tracker", 5*time.Minute)
	}

	router := server.New(server.Deps{
		Tracking:      svc,
		Stats:         svc,
		Emitter:       emitter,
		Pinger:        conn,
		Tokens:        tokens,
		StatsKey:      cfg.StatsKey,
		IdleThreshold: cfg.IdleThreshold(),
		Logger:        logger,
	})

	sw := sweeper.New(svc, nil, cfg.SweepEvery(), cfg.IdleThreshold(), emitter, logger)
	go func() {
		if err := sw.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("sweeper")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// Let in-flight async emits finish before the producer closes.
	time.Sleep(telemetry.ShutdownDrainDuration)
	logger.Info().Msg("stopped")
}
