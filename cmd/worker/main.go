// Worker consumes presence events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, EVENTS_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"presence-tracker/internal/config"
	"presence-tracker/internal/telemetry/loki"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "presence-events-worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	brokers := cfg.EventsKafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal().Msg("KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		logger.Fatal().Msg("LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.EventsKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("topic", cfg.EventsKafkaTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("worker started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("worker stopped")
				return
			}
			logger.Error().Err(err).Msg("kafka read")
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := loki.PushEventJSON(pushCtx, cfg.LokiURL, msg.Value); err != nil {
			logger.Error().Err(err).Msg("loki push")
		}
		pushCancel()
	}
}
