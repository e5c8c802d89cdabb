package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/parkus/config"
	"github.com/Domenick1991/parkus/internal/auth"
	"github.com/Domenick1991/parkus/internal/bootstrap"
	"github.com/Domenick1991/parkus/internal/cache"
	"github.com/Domenick1991/parkus/internal/kafka"
	"github.com/Domenick1991/parkus/internal/metrics"
	"github.com/Domenick1991/parkus/internal/mq"
	"github.com/Domenick1991/parkus/internal/repository"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store *repository.Store
		pings []func(context.Context) error
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Printf("storage: in-memory, data is lost on restart")
		store = repository.NewMemoryStore()
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()

		if cfg.Storage.MigrateOnStart {
			applied, err := repository.Migrate(ctx, pool)
			if err != nil {
				log.Fatalf("migrate: %v", err)
			}
			for _, name := range applied {
				log.Printf("migrate: applied %s", name)
			}
		}
		store = repository.NewPGStore(pool, cfg.Storage.LockTimeout())
		pings = append(pings, pool.Ping)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.AvailableCacheTTL())
	defer redisCache.Close()
	pings = append(pings, redisCache.Ping)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithCache(redisCache),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	}
	producer, closer, err := newProducer(ctx, cfg)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	if producer != nil {
		defer closer.Close()
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Events.PublishRetries))
	}

	metrics.Register()

	availabilityService := availability.NewAvailabilityService(store.Spots, store.Windows, availability.WithCache(redisCache))
	bookingService := booking.NewBookingService(store.Bookings, store.Audit, bookingOpts...)

	deps := bootstrap.Deps{
		Availability: availabilityService,
		Bookings:     bookingService,
		Auth:         auth.NewAuthenticator(cfg.Auth.JWTSecret),
		Ping: func(ctx context.Context) error {
			var errs []error
			for _, ping := range pings {
				errs = append(errs, ping(ctx))
			}
			return errors.Join(errs...)
		},
	}

	if err := bootstrap.Run(ctx, cfg, deps); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// newProducer picks the event transport. A nil producer disables publishing.
func newProducer(ctx context.Context, cfg *config.Config) (booking.Producer, io.Closer, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		p := kafka.NewProducer(cfg.Kafka.Brokers)
		if err := p.CheckConnection(ctx); err != nil {
			log.Printf("WARNING: kafka not reachable yet, events will be retried per publish: %v", err)
		}
		return p, p, nil
	case config.EventsDriverRabbitMQ:
		p, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		log.Printf("events: publishing disabled")
		return nil, nil, nil
	}
}
