package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/logging"
	intOtel "github.com/artycalc/artycalc/internal/otel"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// setupLogging opens the per-run log file and configures slog, the OTel bridge and
// the zerolog logger used by the database and InfluxDB managers. Without a usable
// logs directory everything goes to stderr.
func setupLogging() error {
	SlogManager = logging.NewSlogManager()

	var fileErr error
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fileErr = fmt.Errorf("failed to create logs dir: %w", err)
	} else {
		LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
		LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			fileErr = fmt.Errorf("failed to open log file: %w", err)
			LogFile = nil
		}
	}

	otelCfg := config.GetOTelConfig()
	var otelLogWriter io.Writer
	if otelCfg.Enabled && otelCfg.Endpoint == "" && LogFile != nil {
		otelLogWriter = LogFile
	}
	provider, err := intOtel.New(intOtel.FromConfig(otelCfg, Version, otelLogWriter))
	if err != nil {
		fileErr = fmt.Errorf("failed to set up OpenTelemetry: %w", err)
		provider, _ = intOtel.New(intOtel.Config{})
	}
	OTelProvider = provider

	var slogFile io.Writer
	if LogFile != nil && otelLogWriter == nil {
		slogFile = LogFile
	}
	ctxProvider := func() []slog.Attr {
		if contextAttrs == nil {
			return nil
		}
		return contextAttrs()
	}
	SlogManager.Setup(logging.Options{
		File:     slogFile,
		Level:    viper.GetString("logLevel"),
		Provider: OTelProvider.LoggerProvider(),
		Attrs:    ctxProvider,
	})
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	var extra []io.Writer
	if addr := viper.GetString("graylog.address"); addr != "" {
		GraylogWriter, err = gelf.NewWriter(addr)
		if err != nil {
			Logger.Warn("Failed to create Graylog writer", "address", addr, "error", err)
		} else {
			extra = append(extra, GraylogWriter)
		}
	}
	ZLogger = newZeroLogger(LogFile, viper.GetString("logLevel"), extra...)
	return fileErr
}

// newZeroLogger writes console-formatted records to stderr and, without colors, to file.
// Extra writers such as Graylog receive the raw JSON records.
func newZeroLogger(file io.Writer, level string, extra ...io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	writers = append(writers, extra...)
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Str("app", AppName).Logger()
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down OpenTelemetry: %v\n", err)
		}
	}
	if GraylogWriter != nil {
		_ = GraylogWriter.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
