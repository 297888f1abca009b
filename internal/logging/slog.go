package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName names the otelslog logger.
const InstrumentationName = "artycalc"

// Options configures a SlogManager.
type Options struct {
	// File receives text records. When nil they go to Console instead.
	File io.Writer
	// Console defaults to stderr; stdout is reserved for command output.
	Console io.Writer
	Level   string
	// Provider enables the OTel bridge when non-nil.
	Provider *sdklog.LoggerProvider
	// Attrs is evaluated per record and nested under the session group.
	Attrs ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel accepts the usual level names in any case and falls back to info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup (re)builds the logger. Calling it again replaces the previous handlers.
func (m *SlogManager) Setup(opts Options) {
	m.provider = opts.Provider

	out := opts.File
	if out == nil {
		out = opts.Console
	}
	if out == nil {
		out = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:       ParseLevel(opts.Level),
			ReplaceAttr: utcTime,
		}),
	}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	var h slog.Handler = NewFanoutHandler(handlers...)
	if opts.Attrs != nil {
		h = NewSessionHandler(h, opts.Attrs)
	}

	m.logger = slog.New(h)
	m.logger.Debug("Logging initialized", "level", opts.Level)
}

// Logger returns slog.Default until Setup has run.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Component returns a logger tagged with the component name.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// Flush forces pending OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}
