package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/parkus/config"
	"github.com/Domenick1991/parkus/internal/cache"
	"github.com/Domenick1991/parkus/internal/email"
	"github.com/Domenick1991/parkus/internal/events"
	"github.com/Domenick1991/parkus/internal/kafka"
	"github.com/Domenick1991/parkus/internal/metrics"
	"github.com/Domenick1991/parkus/internal/mq"
	"github.com/Domenick1991/parkus/internal/repository"
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
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Fatalf("worker needs the postgres storage driver, got %q", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	store := repository.NewPGStore(pool, cfg.Storage.LockTimeout())

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.AvailableCacheTTL())
	defer redisCache.Close()

	metrics.Register()

	opts := []booking.BookingServiceOption{
		booking.WithCache(redisCache),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	}
	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		opts = append(opts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Events.PublishRetries))
	case config.EventsDriverRabbitMQ:
		publisher, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("connect rabbitmq: %v", err)
		}
		defer publisher.Close()
		opts = append(opts, booking.WithProducer(publisher, cfg.Kafka.BookingEventsTopic, cfg.Events.PublishRetries))
	}
	bookingService := booking.NewBookingService(store.Bookings, store.Audit, opts...)

	emailSender := email.NewSender()

	if cfg.Events.Driver == config.EventsDriverKafka {
		consumer := kafka.NewBookingEventConsumer(cfg.Kafka)
		defer consumer.Close()
		log.Printf("notifications: consuming %s as group %s", consumer.Topic(), cfg.Kafka.GroupID)

		go func() {
			err := consumer.Run(ctx, func(ctx context.Context, event events.BookingEvent) error {
				_, err := emailSender.Send(ctx, event)
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("consumer stopped: %v", err)
			}
		}()
	} else {
		log.Printf("notifications: consumer only runs with the kafka events driver")
	}

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.CompletionSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			completed, err := bookingService.CompleteElapsedBookings(ctx)
			if err != nil {
				log.Printf("complete bookings error: %v", err)
				continue
			}
			if len(completed) > 0 {
				log.Printf("completed %d bookings", len(completed))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
