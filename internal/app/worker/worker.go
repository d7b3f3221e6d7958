// Package worker wires the background process: it turns record-store
// changes into queue events and delivers the resulting notifications.
package worker

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrms/internal/domain/notify"
	"hrms/internal/platform/config"
	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/platform/db"
	"hrms/internal/platform/email"
	"hrms/internal/platform/queue"
	"hrms/internal/recordstore"
	"hrms/internal/stream"
)

// feedConsumer names the change-detector's position in feed_offsets.
const feedConsumer = "change-detector"

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	fieldCrypto, err := cryptoutil.New(cfg.AESSecretKey)
	if err != nil {
		slog.Error("crypto init failed", "error", err)
		os.Exit(1)
	}

	store := recordstore.NewPostgresStore(pool)
	feed := recordstore.NewPostgresFeed(pool, feedConsumer)

	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ChangeTopic)
	defer producer.Close()
	detector := stream.NewDetector(store, producer)

	var mailer notify.Mailer = email.NoopMailer{}
	if cfg.Email.Enabled {
		mailer = email.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword)
	}
	dispatcher := notify.NewDispatcher(fieldCrypto, mailer, cfg.Email.From, cfg.Email.AdminAddress)

	consumer := queue.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.ChangeTopic,
		cfg.Kafka.ConsumerGroup,
		cfg.Kafka.DeadLetterTopic,
		cfg.Kafka.MaxAttempts,
	)
	defer consumer.Close()

	go pollFeed(ctx, feed, detector, cfg.Feed.BatchSize, cfg.Feed.PollInterval)

	slog.Info("notification worker running",
		"topic", cfg.Kafka.ChangeTopic,
		"group", cfg.Kafka.ConsumerGroup)
	if err := consumer.Run(ctx, dispatcher.Handle); err != nil {
		slog.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
}

// pollFeed drives the change detector. A batch is committed only after every
// event it produced was published, so a publish failure leaves the offset in
// place and the batch is reprocessed.
func pollFeed(ctx context.Context, feed recordstore.Feed, detector *stream.Detector, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		changes, err := feed.Next(ctx, batchSize)
		if err != nil {
			slog.Error("feed read failed", "error", err)
			continue
		}
		if len(changes) == 0 {
			continue
		}

		if err := detector.ProcessBatch(ctx, changes); err != nil {
			slog.Error("change batch failed, will retry", "error", err, "size", len(changes))
			continue
		}
		if err := feed.Commit(ctx, changes[len(changes)-1].Seq); err != nil {
			slog.Error("feed commit failed", "error", err)
		}
	}
}
