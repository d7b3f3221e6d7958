// Package queue wraps the Kafka producer and consumer used for the
// change-event pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"hrms/internal/events"
)

type infoLogger struct{}

func (infoLogger) Printf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "kafka")
}

type errorLogger struct{}

func (errorLogger) Printf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...), "component", "kafka")
}

// Producer publishes change events to a single topic. Writes are
// synchronous so the caller sees the failure and can retry the batch.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 50 * time.Millisecond,
			Logger:       infoLogger{},
			ErrorLogger:  errorLogger{},
		},
	}
}

// Publish writes one event keyed by the employee ID so all events for an
// entity land on the same partition, preserving their order.
func (p *Producer) Publish(ctx context.Context, key string, event events.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish change event for %s: %w", key, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
