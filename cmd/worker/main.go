package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/sailingloc/boatbooking/config"
	"github.com/sailingloc/boatbooking/internal/cache"
	"github.com/sailingloc/boatbooking/internal/email"
	"github.com/sailingloc/boatbooking/internal/kafka"
	"github.com/sailingloc/boatbooking/internal/repository"
	"github.com/sailingloc/boatbooking/internal/service/booking"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.BoatsCacheTTL(), cfg.Booking.PeriodsCacheTTL(), cfg.Booking.FlowTTL())
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	boatRepo := repository.NewBoatRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		boatRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		cfg.Booking.MaterializeLockTTL(),
		logger,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
	defer consumer.Close()

	emailSender := email.NewSender(userRepo, logger)

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil {
			logger.Warn("consumer stopped", zap.Error(err))
		}
	}()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Worker.CompletionSchedule, func() {
		completed, err := bookingService.CompleteFinished(ctx)
		if err != nil {
			logger.Error("completion sweep", zap.Error(err))
			return
		}
		if len(completed) > 0 {
			logger.Info("completed finished bookings", zap.Int("count", len(completed)))
		}
	})
	if err != nil {
		logger.Fatal("schedule completion sweep", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()
	logger.Info("shutting down worker")
}
