package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kmateo04/travelmarket/config"
	"github.com/kmateo04/travelmarket/internal/bootstrap"
	"github.com/kmateo04/travelmarket/internal/cache"
	"github.com/kmateo04/travelmarket/internal/kafka"
	"github.com/kmateo04/travelmarket/internal/repository"
	"github.com/kmateo04/travelmarket/internal/service/booking"
	"github.com/kmateo04/travelmarket/internal/service/schedules"
	"github.com/sirupsen/logrus"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SchedulesCacheTTLSec)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	scheduleRepo := repository.NewScheduleRepository(pool)
	requestRepo := repository.NewBookingRequestRepository(pool)

	scheduleService := schedules.NewScheduleService(
		scheduleRepo,
		requestRepo,
		repository.NewTxRunner(pool),
		redisCache,
		producer,
		cfg.Kafka.RequestEventsTopic,
		logger,
	)
	bookingService := booking.NewBookingService(
		requestRepo,
		scheduleRepo,
		redisCache,
		producer,
		cfg.Kafka.RequestEventsTopic,
		time.Duration(cfg.Booking.RequestExpiryHours)*time.Hour,
		logger,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLockTTL(time.Duration(cfg.Booking.ScheduleLockSeconds)*time.Second),
	)

	if err := bootstrap.Run(ctx, cfg, logger, scheduleService, bookingService); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
