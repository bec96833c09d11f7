package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailingloc/boatbooking/api"
	"github.com/sailingloc/boatbooking/config"
	"github.com/sailingloc/boatbooking/internal/bootstrap"
	"github.com/sailingloc/boatbooking/internal/cache"
	"github.com/sailingloc/boatbooking/internal/identity"
	"github.com/sailingloc/boatbooking/internal/kafka"
	"github.com/sailingloc/boatbooking/internal/payment"
	"github.com/sailingloc/boatbooking/internal/repository"
	"github.com/sailingloc/boatbooking/internal/service/boats"
	"github.com/sailingloc/boatbooking/internal/service/booking"
	"github.com/sailingloc/boatbooking/internal/service/periods"
	"github.com/sailingloc/boatbooking/internal/service/reservation"
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
	blockRepo := repository.NewBlockRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	identityService := identity.NewService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL(), logger)
	paymentGateway := payment.NewGatewayClient(cfg.Payment, logger)

	boatService := boats.NewBoatService(boatRepo, redisCache)
	periodsService := periods.NewPeriodsService(boatRepo, bookingRepo, blockRepo, redisCache, logger)
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
	reservationService := reservation.NewReservationService(
		boatRepo,
		periodsService,
		bookingService,
		identityService,
		paymentGateway,
		redisCache,
		logger,
	)

	router := bootstrap.NewRouter(bootstrap.Handlers{
		Boats:        api.NewBoatHandler(boatService),
		Availability: api.NewAvailabilityHandler(periodsService),
		Bookings:     api.NewBookingHandler(bookingService),
		Reservations: api.NewReservationHandler(reservationService),
	}, identityService)

	if err := bootstrap.Run(ctx, cfg, router, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
