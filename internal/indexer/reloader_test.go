package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	corpus *corpus.Corpus
	err    error
	block  chan struct{}
	calls  int
}

func (l *stubLoader) Load(ctx context.Context) (*corpus.Corpus, error) {
	l.calls++
	if l.block != nil {
		<-l.block
	}
	return l.corpus, l.err
}

func TestReloaderReload(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := NewReloader(newEngine(2), &stubLoader{corpus: fixture()}, m)

	var swapped []uint64
	r.OnSwap(func(ctx context.Context, report BuildReport) {
		swapped = append(swapped, report.Generation)
	})

	report, err := r.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Verses)
	assert.Equal(t, []uint64{1}, swapped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.IndexedVerses))
}

func TestReloaderLoadFailure(t *testing.T) {
	loadErr := errors.New("disk gone")
	m := metrics.New(prometheus.NewRegistry())
	r := NewReloader(newEngine(2), &stubLoader{err: loadErr}, m)
	r.OnSwap(func(ctx context.Context, report BuildReport) {
		t.Fatal("hook must not run on failure")
	})
	var failures []error
	r.OnFailure(func(ctx context.Context, err error) {
		failures = append(failures, err)
	})

	_, err := r.Reload(context.Background())
	assert.ErrorIs(t, err, loadErr)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], loadErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("failure")))
}

func TestReloaderInvalidCorpusKeepsSnapshot(t *testing.T) {
	engine := newEngine(2)
	_, err := engine.Build(context.Background(), fixture())
	require.NoError(t, err)

	r := NewReloader(engine, &stubLoader{corpus: &corpus.Corpus{}}, nil)
	_, err = r.Reload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidCorpus)

	snap, err := engine.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Report.Verses)
}

func TestReloaderRejectsConcurrentReload(t *testing.T) {
	loader := &stubLoader{corpus: fixture(), block: make(chan struct{})}
	r := NewReloader(newEngine(2), loader, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reload(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return r.running.Load() }, time.Second, time.Millisecond)

	_, err := r.Reload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrReloadInProgress)

	close(loader.block)
	assert.NoError(t, <-done)
}
