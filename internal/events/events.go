package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte, []byte) error { return nil }
func (Nop) Close() error                                          { return nil }

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafka(broker string) (Publisher, error) {
	// fail fast if the broker is unreachable
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return nil, fmt.Errorf("connect kafka %s: %w", broker, err)
	}
	conn.Close()

	return &kafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}, nil
}

func (k *kafkaPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (k *kafkaPublisher) Close() error {
	return k.writer.Close()
}

// AppointmentEvent is published after an appointment mutation commits.
type AppointmentEvent struct {
	Event          string    `json:"event"`
	UserID         int64     `json:"user_id"`
	AppointmentID  int64     `json:"appointment_id"`
	NotificationID int64     `json:"notification_id"`
	Title          string    `json:"title"`
	OccurredAt     time.Time `json:"occurred_at"`
}
