// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/artycalc/artycalc/pkg/core"
)

// ErrPresetNotFound is returned by Load and Delete for unknown preset names
var ErrPresetNotFound = errors.New("preset not found")

// ErrInvalidName is returned when a preset name is empty or cannot be stored
var ErrInvalidName = errors.New("invalid preset name")

// PresetInfo summarizes a stored preset for listings
type PresetInfo struct {
	Name       string    `json:"name"`
	Targets    int       `json:"targets"`
	References int       `json:"references"`
	Guns       int       `json:"guns"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Backend is the interface all preset storage implementations must satisfy.
// Save overwrites a preset with the same name.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	Save(ctx context.Context, s core.Snapshot) error
	Load(ctx context.Context, name string) (core.Snapshot, error)
	List(ctx context.Context) ([]PresetInfo, error)
	Delete(ctx context.Context, name string) error
}

// Info builds the listing entry for a snapshot.
func Info(s core.Snapshot, updated time.Time) PresetInfo {
	return PresetInfo{
		Name:       s.Name,
		Targets:    len(s.Targets),
		References: len(s.References),
		Guns:       len(s.Guns),
		UpdatedAt:  updated,
	}
}
