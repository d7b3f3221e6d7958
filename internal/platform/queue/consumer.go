package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one message payload. A nil return commits the message;
// an error triggers a bounded retry before the message is dead-lettered.
type Handler func(ctx context.Context, payload []byte) error

// Consumer reads change events from a consumer group and hands each message
// to a Handler. Messages that keep failing are copied to a dead-letter topic
// and committed so they stop blocking the partition.
type Consumer struct {
	reader      *kafka.Reader
	deadLetter  *kafka.Writer
	maxAttempts int
	backoff     time.Duration
}

func NewConsumer(brokers []string, topic, groupID, deadLetterTopic string, maxAttempts int) *Consumer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			Logger:      infoLogger{},
			ErrorLogger: errorLogger{},
		}),
		deadLetter: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        deadLetterTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			ErrorLogger:  errorLogger{},
		},
		maxAttempts: maxAttempts,
		backoff:     time.Second,
	}
}

// Run consumes until the context is canceled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.process(ctx, handler, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, handler Handler, msg kafka.Message) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = handler(ctx, msg.Value)
		if lastErr == nil {
			return nil
		}
		slog.Warn("message handler failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", lastErr)
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}

	slog.Error("message exhausted retries, moving to dead letter topic",
		"topic", msg.Topic,
		"offset", msg.Offset,
		"error", lastErr)
	dead := kafka.Message{Key: msg.Key, Value: msg.Value}
	if err := c.deadLetter.WriteMessages(ctx, dead); err != nil {
		return fmt.Errorf("write dead letter message: %w", err)
	}
	return nil
}

func (c *Consumer) Close() error {
	rerr := c.reader.Close()
	werr := c.deadLetter.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
