package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
)

// Publisher delivers one analytics event. *kafka.Producer, the batch
// publisher and the in-process Aggregator all satisfy it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Tracker is what request handlers depend on.
type Tracker interface {
	Track(event any)
}

// Collector buffers events on a channel and forwards them to every publisher
// from a single goroutine, so Track never blocks a search request.
type Collector struct {
	publishers []Publisher
	eventCh    chan any
	mu         sync.RWMutex
	closed     bool
	started    atomic.Bool
	dropped    atomic.Int64
	logger     *slog.Logger
	done       chan struct{}
}

func NewCollector(bufferSize int, publishers ...Publisher) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publishers: publishers,
		eventCh:    make(chan any, bufferSize),
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"publishers", len(c.publishers),
	)
}

// Track enqueues an event. When the buffer is full or the collector is
// closed the event is dropped and counted.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped returns how many events Track discarded.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits until the buffered ones have been
// published.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) publish(ctx context.Context, event any) {
	msg := kafka.Event{Key: eventKey(event), Value: event}
	for _, p := range c.publishers {
		if err := p.Publish(ctx, msg); err != nil {
			c.logger.Error("failed to publish analytics event", "key", msg.Key, "error", err)
		}
	}
}

func (c *Collector) drainRemaining() {
	ctx := context.Background()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func eventKey(event any) string {
	switch event.(type) {
	case SearchEvent, *SearchEvent:
		return string(EventSearch)
	case BuildEvent, *BuildEvent:
		return string(EventBuild)
	default:
		return "analytics"
	}
}
