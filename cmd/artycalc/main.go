package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/logging"
	intOtel "github.com/artycalc/artycalc/internal/otel"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// build info, set via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "artycalc"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger is handed to the database and InfluxDB managers
	ZLogger zerolog.Logger

	// GraylogWriter is the GELF writer, set when graylog.address is configured
	GraylogWriter *gelf.Writer

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime time.Time = time.Now()

	// contextAttrs is set by commands that own a session, so every record carries it
	contextAttrs logging.ContextProvider
)

// errUsage is returned for malformed command lines.
var errUsage = errors.New("usage")

// command is one artycalc subcommand.
type command struct {
	usage string
	run   func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error
}

var commands = map[string]command{
	"solve":     {"solve <preset.json> [--copy] [--remote URL]", runSolve},
	"calibrate": {"calibrate <preset.json> <gun>", runCalibrate},
	"guns":      {"guns", runGuns},
	"preset":    {"preset list | save <file> | load <name> <file> | delete <name>", runPreset},
	"serve":     {"serve [--listen ADDR]", runServe},
	"repl":      {"repl", runRepl},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	flags.SetInterspersed(false)
	configDir := flags.String("config", ".", "directory containing "+config.FileName)
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Usage = func() { printUsage(os.Stderr, flags) }
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		printUsage(os.Stderr, flags)
		return 2
	}

	cmd, ok := commands[flags.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flags.Arg(0))
		printUsage(os.Stderr, flags)
		return 2
	}

	cfgErr := config.Load(*configDir)
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))

	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
	}
	defer shutdownLogging()

	if cfgErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}
	Logger.Debug("Starting", "version", Version, "buildDate", BuildDate, "command", flags.Arg(0))

	ctx, cancel := signalContext()
	defer cancel()

	if err := cmd.run(ctx, flags.Args()[1:], stdin, stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: %s %s\n", AppName, cmd.usage)
			return 2
		}
		Logger.Error("Command failed", "command", flags.Arg(0), "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "usage: %s [flags] <command>\n\ncommands:\n", AppName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(w, "\nflags:\n%s", flags.FlagUsages())
}
