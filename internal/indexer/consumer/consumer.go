// Package consumer reads corpus-reload events from Kafka and rebuilds the
// search index through the reloader, so every searcher instance picks up a
// new corpus without a restart.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/resilience"
)

// ReloadEvent asks searchers to reload the corpus from its source.
type ReloadEvent struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Reloader is satisfied by *indexer.Reloader.
type Reloader interface {
	Reload(ctx context.Context) (indexer.BuildReport, error)
}

// ReloadConsumer wraps a Kafka consumer to drive corpus reloads.
type ReloadConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a ReloadConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *ReloadConsumer {
	return &ReloadConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	rc.logger.Info("reload consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that triggers a reload for
// every event. Undecodable events are logged and dropped. A reload that is
// already running absorbs the event, and an invalid corpus is not retried.
func HandleMessage(r Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ReloadEvent](value)
		if err != nil {
			logger.Error("failed to decode reload event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Info("reload requested",
			"reason", event.Reason,
			"requested_by", event.RequestedBy,
			"requested_at", event.RequestedAt,
		)
		report, err := r.Reload(ctx)
		if errors.Is(err, apperrors.ErrReloadInProgress) {
			logger.Info("reload already in progress, event absorbed", "reason", event.Reason)
			return nil
		}
		if errors.Is(err, apperrors.ErrInvalidCorpus) {
			return resilience.Permanent(fmt.Errorf("reloading corpus (%s): %w", event.Reason, err))
		}
		if err != nil {
			return fmt.Errorf("reloading corpus (%s): %w", event.Reason, err)
		}
		logger.Info("corpus reloaded",
			"generation", report.Generation,
			"verses", report.Verses,
			"skipped", report.Skipped,
		)
		return nil
	}
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RequestReload publishes a reload event for every searcher to act on.
func RequestReload(ctx context.Context, p Publisher, reason, requestedBy string) error {
	event := ReloadEvent{
		Reason:      reason,
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	}
	if err := p.Publish(ctx, kafka.Event{Key: "corpus", Value: event}); err != nil {
		return fmt.Errorf("requesting reload: %w", err)
	}
	return nil
}
