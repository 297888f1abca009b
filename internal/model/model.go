package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Preset{},
}

// Preset is a saved calculator snapshot. The snapshot is kept in its JSON wire form
// so presets written by any version stay loadable; the counts exist for listing.
type Preset struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	Name       string         `json:"name" gorm:"size:127;uniqueIndex;not null"`
	Snapshot   datatypes.JSON `json:"snapshot"`
	Targets    int            `json:"targets" gorm:"column:target_count"`
	References int            `json:"references" gorm:"column:reference_count"`
	Guns       int            `json:"guns" gorm:"column:gun_count"`
}

func (*Preset) TableName() string {
	return "presets"
}

// BeforeCreate assigns a random id to new rows.
func (p *Preset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
