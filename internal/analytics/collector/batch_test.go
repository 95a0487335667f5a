package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakeProducer) PublishBatch(ctx context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestPublishFlushesFullBatch(t *testing.T) {
	p := &fakeProducer{}
	bp := NewBatchPublisher(p, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, bp.Publish(ctx, kafka.Event{Key: "search"}))
	}
	assert.Equal(t, 0, p.count())
	assert.Equal(t, 2, bp.BufferLen())

	require.NoError(t, bp.Publish(ctx, kafka.Event{Key: "search"}))
	assert.Equal(t, 1, p.count())
	assert.Len(t, p.batches[0], 3)
	assert.Equal(t, 0, bp.BufferLen())
}

func TestFlushFailureRequeues(t *testing.T) {
	p := &fakeProducer{err: errors.New("broker down")}
	bp := NewBatchPublisher(p, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, bp.Publish(ctx, kafka.Event{Key: "search"}))
	}
	assert.LessOrEqual(t, bp.BufferLen(), 6)
	assert.Positive(t, bp.BufferLen())

	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	bp.Flush(ctx)
	assert.Equal(t, 0, bp.BufferLen())
	assert.Equal(t, 1, p.count())
}

func TestStartFlushesOnShutdown(t *testing.T) {
	p := &fakeProducer{}
	bp := NewBatchPublisher(p, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bp.Start(ctx)

	require.NoError(t, bp.Publish(ctx, kafka.Event{Key: "index_build"}))
	cancel()
	bp.Close()

	assert.Equal(t, 1, p.count())
	assert.Equal(t, "index_build", p.batches[0][0].Key)
}

func TestStartFlushesOnInterval(t *testing.T) {
	p := &fakeProducer{}
	bp := NewBatchPublisher(p, 100, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		bp.Close()
	}()
	bp.Start(ctx)

	require.NoError(t, bp.Publish(ctx, kafka.Event{Key: "search"}))
	require.Eventually(t, func() bool { return p.count() == 1 }, time.Second, 5*time.Millisecond)
}
