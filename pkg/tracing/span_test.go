package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "req-1")
	assert.Same(t, root, SpanFromContext(ctx))

	childCtx, parse := StartChildSpan(ctx, "parse")
	require.NotNil(t, parse)
	assert.Equal(t, "req-1", parse.TraceID)
	assert.Same(t, parse, SpanFromContext(childCtx))

	_, grandchild := StartChildSpan(childCtx, "normalize")
	grandchild.End()
	parse.End()
	_, match := StartChildSpan(ctx, "match")
	match.SetAttr("hits", 3)
	match.End()

	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "parse", children[0].Name)
	assert.Equal(t, "match", children[1].Name)
	assert.Len(t, children[0].Children(), 1)
}

func TestStartSpanGeneratesTraceID(t *testing.T) {
	_, a := StartSpan(context.Background(), "reload", "")
	_, b := StartSpan(context.Background(), "reload", "")
	assert.NotEmpty(t, a.TraceID)
	assert.NotEqual(t, a.TraceID, b.TraceID)
}

func TestChildWithoutParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := StartChildSpan(ctx, "orphan")
	assert.Nil(t, span)
	assert.Equal(t, ctx, got)

	assert.NotPanics(t, func() {
		span.SetAttr("k", "v")
		span.End()
		span.Finish(slog.Default())
		assert.Nil(t, span.Children())
	})
}

func TestFinishLogsTreeAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "search", "req-2")
	root.SetAttr("mode", "words")
	_, child := StartChildSpan(ctx, "rank")
	child.End()
	root.Finish(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "search", first["span"])
	assert.Equal(t, "words", first["mode"])
	assert.Equal(t, "rank", second["span"])
	assert.Equal(t, 1.0, second["depth"])
}

func TestFinishSilentAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	_, root := StartSpan(context.Background(), "search", "req-3")
	root.Finish(logger)
	assert.Empty(t, buf.String())
}
