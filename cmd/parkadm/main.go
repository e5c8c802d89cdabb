package main

import (
	"context"
	"log"

	"github.com/Domenick1991/parkus/config"
	"github.com/Domenick1991/parkus/internal/cache"
	"github.com/Domenick1991/parkus/internal/cli"
	"github.com/Domenick1991/parkus/internal/kafka"
	"github.com/Domenick1991/parkus/internal/mq"
	"github.com/Domenick1991/parkus/internal/repository"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cli.Execute(openEnv)
}

func openEnv(ctx context.Context, cfgPath string) (*cli.Env, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	closers := []func(){pool.Close}
	store := repository.NewPGStore(pool, cfg.Storage.LockTimeout())

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.AvailableCacheTTL())
	closers = append(closers, func() { _ = redisCache.Close() })

	opts := []booking.BookingServiceOption{
		booking.WithCache(redisCache),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	}
	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		closers = append(closers, func() { _ = producer.Close() })
		opts = append(opts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Events.PublishRetries))
	case config.EventsDriverRabbitMQ:
		publisher, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Printf("WARNING: rabbitmq unavailable, events will not be published: %v", err)
			break
		}
		closers = append(closers, func() { _ = publisher.Close() })
		opts = append(opts, booking.WithProducer(publisher, cfg.Kafka.BookingEventsTopic, cfg.Events.PublishRetries))
	}

	return &cli.Env{
		Availability: availability.NewAvailabilityService(store.Spots, store.Windows, availability.WithCache(redisCache)),
		Bookings:     booking.NewBookingService(store.Bookings, store.Audit, opts...),
		Migrate: func(ctx context.Context) ([]string, error) {
			return repository.Migrate(ctx, pool)
		},
		Close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
