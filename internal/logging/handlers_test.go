package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestFanoutHandler_Delivers(t *testing.T) {
	var info, debug bytes.Buffer
	f := NewFanoutHandler(nil, textHandler(&info, slog.LevelInfo), nil, textHandler(&debug, slog.LevelDebug))
	require.Len(t, f.handlers, 2)

	logger := slog.New(f)
	logger.Debug("aim point moved")
	logger.Info("solution ready")

	assert.NotContains(t, info.String(), "aim point moved")
	assert.Contains(t, info.String(), "solution ready")
	assert.Contains(t, debug.String(), "aim point moved")
	assert.Contains(t, debug.String(), "solution ready")
}

func TestFanoutHandler_Enabled(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	assert.False(t, NewFanoutHandler().Enabled(ctx, slog.LevelError))

	infoOnly := NewFanoutHandler(textHandler(&buf, slog.LevelInfo))
	assert.False(t, infoOnly.Enabled(ctx, slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(ctx, slog.LevelWarn))
}

func TestFanoutHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanoutHandler(textHandler(&buf, slog.LevelInfo))

	assert.Same(t, f, f.WithGroup(""))

	slog.New(f.WithAttrs([]slog.Attr{slog.String("component", "scheduler")}).WithGroup("gun")).
		Info("fired", "index", 2)

	assert.Contains(t, buf.String(), "component=scheduler")
	assert.Contains(t, buf.String(), "gun.index=2")
}

// failingHandler accepts every record and fails to write it.
type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func TestFanoutHandler_KeepsGoingOnError(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanoutHandler(failingHandler{}, textHandler(&buf, slog.LevelInfo))

	r := slog.NewRecord(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "calibrated", 0)
	err := f.Handle(context.Background(), r)

	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, buf.String(), "calibrated")
}

func TestSessionHandler(t *testing.T) {
	var buf bytes.Buffer
	preset := "ridge"
	h := NewSessionHandler(textHandler(&buf, slog.LevelInfo), func() []slog.Attr {
		if preset == "" {
			return nil
		}
		return []slog.Attr{slog.String("preset", preset)}
	})

	logger := slog.New(h)
	logger.Info("first")
	assert.Contains(t, buf.String(), "session.preset=ridge")

	buf.Reset()
	preset = ""
	logger.Info("second")
	assert.NotContains(t, buf.String(), "session")

	buf.Reset()
	preset = "valley"
	slog.New(h.WithAttrs([]slog.Attr{slog.Int("gun", 1)})).Info("third")
	assert.Contains(t, buf.String(), "gun=1")
	assert.Contains(t, buf.String(), "session.preset=valley")
}

func TestSessionHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewSessionHandler(textHandler(&buf, slog.LevelInfo), nil)

	assert.Same(t, h, h.WithGroup(""))
	slog.New(h).Info("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.NotContains(t, buf.String(), "session")
}
