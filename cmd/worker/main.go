package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kmateo04/travelmarket/config"
	"github.com/kmateo04/travelmarket/internal/cache"
	"github.com/kmateo04/travelmarket/internal/email"
	"github.com/kmateo04/travelmarket/internal/kafka"
	"github.com/kmateo04/travelmarket/internal/repository"
	"github.com/kmateo04/travelmarket/internal/service/booking"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// The worker owns the background half of the system: the periodic expiry
// sweep that auto-declines stale requests, and the notifications consumer
// that turns lifecycle events into emails.
func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SchedulesCacheTTLSec)*time.Second)

	scheduleRepo := repository.NewScheduleRepository(pool)
	requestRepo := repository.NewBookingRequestRepository(pool)
	bookingService := booking.NewBookingService(
		requestRepo,
		scheduleRepo,
		redisCache,
		producer,
		cfg.Kafka.RequestEventsTopic,
		time.Duration(cfg.Booking.RequestExpiryHours)*time.Hour,
		logger,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender(logger)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.RequestEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.WithError(err).Warn("decode event")
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			logger.WithError(err).Info("consumer stopped")
		}
	}()

	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expireTicker.C:
			expired, err := bookingService.ExpireOverdueRequests(ctx)
			if err != nil {
				logger.WithError(err).Error("expire requests")
				continue
			}
			if len(expired) > 0 {
				logger.WithField("count", len(expired)).Info("expired booking requests")
			}
		case s := <-sig:
			logger.WithField("signal", s.String()).Info("shutting down")
			return
		}
	}
}
