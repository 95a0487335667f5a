package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("engine", Ready(func() bool { return true }, "serving", "no index"))
	c.Register("redis", Optional(true, func(ctx context.Context) error { return errors.New("refused") }))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUp, report.Components["engine"].Status)
	assert.Equal(t, "refused", report.Components["redis"].Message)
	assert.NotEmpty(t, report.Components["engine"].Latency)
}

func TestOptionalNotConfigured(t *testing.T) {
	check := Optional(false, func(ctx context.Context) error {
		t.Fatal("ping must not run")
		return nil
	})
	assert.Equal(t, StatusUp, check(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	var ready atomic.Bool
	c := NewChecker()
	c.Register("engine", Ready(ready.Load, "serving", "index not built"))
	h := c.ReadyHandler()

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "index not built", report.Components["engine"].Message)

	ready.Store(true)
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestRunBoundsEachCheck(t *testing.T) {
	c := NewChecker()
	c.timeout = 10 * time.Millisecond
	c.Register("postgres", Optional(true, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Contains(t, report.Components["postgres"].Message, "deadline exceeded")
}
