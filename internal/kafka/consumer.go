package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/parkus/config"
	"github.com/Domenick1991/parkus/internal/events"
	"github.com/segmentio/kafka-go"
)

var errMalformedEvent = errors.New("booking event without type or booking id")

// BookingEventHandler reacts to one booking event. An error stops the consumer
// before the event is committed, so the group redelivers it.
type BookingEventHandler func(ctx context.Context, event events.BookingEvent) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BookingEventConsumer follows the notifications topic as a member of the
// worker's consumer group. Without a notifications topic it reads the booking
// events topic directly.
type BookingEventConsumer struct {
	topic  string
	reader messageReader
}

func NewBookingEventConsumer(cfg config.KafkaConfig) *BookingEventConsumer {
	topic := cfg.NotificationsTopic
	if topic == "" {
		topic = cfg.BookingEventsTopic
	}
	return &BookingEventConsumer{
		topic: topic,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             topic,
			StartOffset:       kafka.FirstOffset,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *BookingEventConsumer) Topic() string {
	return c.topic
}

func (c *BookingEventConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run hands every decoded event to handle and commits it afterwards. Messages
// that do not decode are logged and committed so they cannot stall a
// partition. Run returns when ctx is done, a fetch or commit fails, or handle
// returns an error.
func (c *BookingEventConsumer) Run(ctx context.Context, handle BookingEventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		event, err := DecodeBookingEvent(msg)
		if err != nil {
			log.Printf("kafka: skip booking event %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		} else if err := handle(ctx, event); err != nil {
			return fmt.Errorf("handle %s for booking %d: %w", event.Type, event.BookingID, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
	}
}

func DecodeBookingEvent(msg kafka.Message) (events.BookingEvent, error) {
	var event events.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return event, err
	}
	if event.Type == "" || event.BookingID == 0 {
		return event, errMalformedEvent
	}
	return event, nil
}
