// Package collector batches analytics events before they reach Kafka, so a
// busy searcher issues one broker write per batch instead of one per query.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
)

// BatchProducer is satisfied by *kafka.Producer.
type BatchProducer interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// BatchPublisher accumulates events and flushes them either when the batch
// reaches batchSize or after flushInterval. Failed batches are re-queued up
// to three batches' worth; older events beyond that are dropped.
type BatchPublisher struct {
	producer      BatchProducer
	mu            sync.Mutex
	flushMu       sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

func NewBatchPublisher(producer BatchProducer, batchSize int, flushInterval time.Duration) *BatchPublisher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchPublisher{
		producer:      producer,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "batch-publisher"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop; it stops with a final flush
// once ctx is cancelled.
func (bp *BatchPublisher) Start(ctx context.Context) {
	go func() {
		defer close(bp.done)
		ticker := time.NewTicker(bp.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bp.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bp.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bp.logger.Info("batch publisher started",
		"batch_size", bp.batchSize,
		"flush_interval", bp.flushInterval,
	)
}

// Publish buffers the event and flushes synchronously once the batch is full.
func (bp *BatchPublisher) Publish(ctx context.Context, event kafka.Event) error {
	bp.mu.Lock()
	bp.buffer = append(bp.buffer, event)
	full := len(bp.buffer) >= bp.batchSize
	bp.mu.Unlock()

	if full {
		bp.Flush(ctx)
	}
	return nil
}

// Close waits for the background flush loop to finish.
func (bp *BatchPublisher) Close() {
	<-bp.done
}

func (bp *BatchPublisher) BufferLen() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Flush writes everything buffered so far as one batch.
func (bp *BatchPublisher) Flush(ctx context.Context) {
	bp.flushMu.Lock()
	defer bp.flushMu.Unlock()

	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return
	}
	batch := bp.buffer
	bp.buffer = make([]kafka.Event, 0, bp.batchSize)
	bp.mu.Unlock()

	if err := bp.producer.PublishBatch(ctx, batch); err != nil {
		bp.logger.Error("batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		bp.mu.Lock()
		bp.buffer = append(batch, bp.buffer...)
		if limit := bp.batchSize * 3; len(bp.buffer) > limit {
			dropped := len(bp.buffer) - limit
			bp.buffer = bp.buffer[dropped:]
			bp.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		bp.mu.Unlock()
		return
	}

	bp.logger.Debug("batch flushed", "events", len(batch))
}
