package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// Invalidator drops the cache entries touched by a write.
type Invalidator interface {
	InvalidateLists(ctx context.Context, ownerID string) error
	InvalidateTodo(ctx context.Context, todoID, ownerID string) error
}

// Run starts the Kafka consumer: reads todo events written by other replicas
// and invalidates the matching local cache entries. groupID must be unique per
// replica so every replica sees every event.
func Run(ctx context.Context, brokers []string, topic, groupID, origin string, inv Invalidator) {
	if len(brokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	var processed int64
	logger.Info(ctx, "Kafka consumer started", "topic", topic, "group", groupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Kafka consumer stopped", "processed", atomic.LoadInt64(&processed))
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := handleMessage(ctx, origin, inv, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
		atomic.AddInt64(&processed, 1)
	}
}

func handleMessage(ctx context.Context, origin string, inv Invalidator, payload []byte) error {
	var ev models.TodoEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode todo event: %w", err)
	}
	if ev.Origin == origin || ev.OwnerID == "" {
		return nil
	}
	switch ev.Action {
	case models.ActionCreated:
		return inv.InvalidateLists(ctx, ev.OwnerID)
	case models.ActionUpdated, models.ActionDeleted:
		return inv.InvalidateTodo(ctx, ev.TodoID, ev.OwnerID)
	default:
		logger.Debug(ctx, "Ignoring unknown todo event", "action", ev.Action)
		return nil
	}
}
