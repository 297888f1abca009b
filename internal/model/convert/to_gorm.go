// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/artycalc/artycalc/internal/model"
	"github.com/artycalc/artycalc/pkg/core"
	"gorm.io/datatypes"
)

// CoreToPreset converts a snapshot into a GORM model.Preset row.
// The row id is left for BeforeCreate to assign.
func CoreToPreset(s core.Snapshot) (model.Preset, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return model.Preset{}, fmt.Errorf("encoding snapshot %q: %w", s.Name, err)
	}
	return model.Preset{
		Name:       s.Name,
		Snapshot:   datatypes.JSON(data),
		Targets:    len(s.Targets),
		References: len(s.References),
		Guns:       len(s.Guns),
	}, nil
}
