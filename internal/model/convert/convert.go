package convert

import (
	"encoding/json"
	"fmt"

	"github.com/artycalc/artycalc/internal/model"
	"github.com/artycalc/artycalc/pkg/core"
)

// PresetToCore decodes the snapshot stored in a preset row.
// The row name wins over any name embedded in the JSON.
func PresetToCore(p model.Preset) (core.Snapshot, error) {
	var s core.Snapshot
	if len(p.Snapshot) > 0 {
		if err := json.Unmarshal(p.Snapshot, &s); err != nil {
			return core.Snapshot{}, fmt.Errorf("decoding preset %q: %w", p.Name, err)
		}
	}
	s.Name = p.Name
	return s, nil
}
