// Package gormstorage implements storage.Backend on a gorm database. The same code
// serves SQLite and Postgres; the dialect is chosen by whoever opens the connection.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artycalc/artycalc/internal/model"
	"github.com/artycalc/artycalc/internal/model/convert"
	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// OnClose runs when the backend is closed, e.g. to close the connection pool.
	OnClose func() error
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init migrates the preset table.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection")
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to auto-migrate presets: %w", err)
	}
	b.deps.Logger.Debug("preset table ready", "dialect", b.deps.DB.Dialector.Name())
	return nil
}

// Close runs the OnClose hook.
func (b *Backend) Close() error {
	if b.deps.OnClose != nil {
		return b.deps.OnClose()
	}
	return nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %q", storage.ErrInvalidName, name)
	}
	return nil
}

// Save inserts the preset or replaces the stored snapshot of the same name.
func (b *Backend) Save(ctx context.Context, s core.Snapshot) error {
	if err := checkName(s.Name); err != nil {
		return err
	}
	row, err := convert.CoreToPreset(s)
	if err != nil {
		return err
	}

	err = b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"snapshot", "target_count", "reference_count", "gun_count", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", s.Name, err)
	}
	return nil
}

// Load returns the preset with the given name.
func (b *Backend) Load(ctx context.Context, name string) (core.Snapshot, error) {
	var row model.Preset
	err := b.deps.DB.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Snapshot{}, fmt.Errorf("%w: %s", storage.ErrPresetNotFound, name)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to load preset %q: %w", name, err)
	}
	return convert.PresetToCore(row)
}

// List returns all presets sorted by name without decoding their snapshots.
func (b *Backend) List(ctx context.Context) ([]storage.PresetInfo, error) {
	var rows []model.Preset
	err := b.deps.DB.WithContext(ctx).
		Select("name", "target_count", "reference_count", "gun_count", "updated_at").
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	out := make([]storage.PresetInfo, len(rows))
	for i, r := range rows {
		out[i] = storage.PresetInfo{
			Name:       r.Name,
			Targets:    r.Targets,
			References: r.References,
			Guns:       r.Guns,
			UpdatedAt:  r.UpdatedAt.UTC(),
		}
	}
	return out, nil
}

// Delete removes the preset with the given name.
func (b *Backend) Delete(ctx context.Context, name string) error {
	res := b.deps.DB.WithContext(ctx).Where("name = ?", name).Delete(&model.Preset{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrPresetNotFound, name)
	}
	return nil
}
