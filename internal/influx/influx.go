// Package influx records fire missions (solutions and calibrations) as InfluxDB points,
// falling back to a gzip line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/artycalc/artycalc/internal/correction"
	"github.com/artycalc/artycalc/internal/scene"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// DefaultBucket holds every fire-mission measurement.
	DefaultBucket = "fire_missions"

	MeasurementSolution    = "firing_solution"
	MeasurementCalibration = "calibration"

	retentionSeconds = 60 * 60 * 24 * 90 // 90 days
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx.enabled is false")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Bucket       string
	Logger       zerolog.Logger
	BackupPath   string

	mu         sync.Mutex
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	bucket := viper.GetString("influx.bucket")
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Manager{
		IsValid:    false,
		Bucket:     bucket,
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not answer,
// points go to the backup file instead and Connect still succeeds.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		m.Client.Close()
		m.Client = nil
		return m.OpenBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.IsValid = true
	m.Logger.Info().Str("bucket", m.Bucket).Msg("InfluxDB client initialized")
	return nil
}

// OpenBackup opens the gzip line-protocol file used while InfluxDB is unavailable.
func (m *Manager) OpenBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return errors.New("influx backup path not set")
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	m.IsValid = false
	m.Logger.Warn().Str("backupPath", m.BackupPath).Msg("InfluxDB unavailable, using backup writer")
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(viper.GetString("influx.org"), m.Bucket)

	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// LogSolution records the firing solution of one resolved gun.
func (m *Manager) LogSolution(ctx context.Context, preset string, g scene.Gun) error {
	return m.WritePoint(ctx, SolutionPoint(preset, g, time.Now()))
}

// LogCalibration records the result of calibrating gun i.
func (m *Manager) LogCalibration(ctx context.Context, preset string, gun int, model string, out correction.Output) error {
	return m.WritePoint(ctx, CalibrationPoint(preset, gun, model, out, time.Now()))
}

// Close flushes pending writes and closes the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// SolutionPoint builds a firing_solution point.
func SolutionPoint(preset string, g scene.Gun, t time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementSolution,
		map[string]string{
			"preset": preset,
			"gun":    strconv.Itoa(g.Index),
			"model":  g.Spec.Model,
			"target": strconv.Itoa(g.TargetID),
		},
		map[string]interface{}{
			"dist":    g.Solution.Dist,
			"azim":    g.Solution.Azim,
			"spread":  g.AimSpread.Radius,
			"inRange": g.Solution.InRange,
		},
		t)
}

// CalibrationPoint builds a calibration point.
func CalibrationPoint(preset string, gun int, model string, out correction.Output, t time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementCalibration,
		map[string]string{
			"preset": preset,
			"gun":    strconv.Itoa(gun),
			"model":  model,
		},
		map[string]interface{}{
			"correctionX": out.CorrectionX,
			"correctionY": out.CorrectionY,
			"verdict":     string(out.Verdict),
			"missDist":    out.Miss.Dist,
			"missAzim":    out.Miss.Azim,
		},
		t)
}
