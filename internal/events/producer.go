package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicUsers  = "user_events"
	TopicSweets = "sweet_events"
)

const (
	UserRegistered = "user_registered"
	SweetCreated   = "sweet_created"
	SweetUpdated   = "sweet_updated"
	SweetDeleted   = "sweet_deleted"
	SweetPurchased = "sweet_purchased"
	SweetRestocked = "sweet_restocked"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

// NewPublisher returns a Kafka producer, or a no-op publisher when no
// brokers are configured.
func NewPublisher(brokers []string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewProducer(brokers)
}

// kafka-go holds a partial batch for up to one second by default.
const batchTimeout = 5 * time.Millisecond

func NewProducer(brokers []string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchSize:              1,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           5 * time.Second,
	}}
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) PublishEvent(context.Context, string, string, any) error { return nil }
func (Noop) Close() error                                            { return nil }
