package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// EnsureTopic creates the todo events topic on the cluster controller. An
// existing topic is not an error. Callers treat failure as non-fatal: events
// are best effort.
func EnsureTopic(ctx context.Context, brokers []string, topic string, partitions int) error {
	if len(brokers) == 0 {
		return nil
	}
	seed, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial %s: %w", brokers[0], err)
	}
	defer seed.Close()

	broker, err := seed.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	addr := net.JoinHostPort(broker.Host, strconv.Itoa(broker.Port))
	ctrl, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	logger.Info(ctx, "Todo events topic ready", "topic", topic, "partitions", partitions)
	return nil
}

// MessageWriter is the part of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes TodoEvents keyed by owner, so one owner's events stay ordered
// within a partition.
type Publisher struct {
	writer MessageWriter
}

// NewPublisher returns an async publisher for topic on brokers.
func NewPublisher(ctx context.Context, brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 0,
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn(ctx, "Todo events dropped", "error", err, "messages", len(msgs))
			}
		},
	}
	logger.Info(ctx, "Todo event publisher ready", "topic", topic, "brokers", brokers)
	return &Publisher{writer: w}
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish hands ev to the writer. With the async writer it returns before delivery.
func (p *Publisher) Publish(ctx context.Context, ev models.TodoEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal todo event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OwnerID),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
