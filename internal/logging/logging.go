// Package logging sets up slog output for the CLI and server and adapts loggers
// for the command dispatcher.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the per-run log file path, e.g. logs/artycalc.20260212_213836.log.
func LogFilePath(logsDir, appName string, start time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, start.Format("20060102_150405")),
	)
}
