// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/pkg/core"
)

// record is a stored preset with its last write time
type record struct {
	snap    core.Snapshot
	updated time.Time
}

// Backend keeps presets in memory for the lifetime of the process
type Backend struct {
	presets map[string]*record // keyed by preset name
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		presets: make(map[string]*record),
		now:     time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Save stores a copy of the preset, replacing any preset with the same name
func (b *Backend) Save(ctx context.Context, s core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Name) == "" {
		return storage.ErrInvalidName
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.presets[s.Name] = &record{snap: s.Clone(), updated: b.now()}
	return nil
}

// Load returns a copy of the named preset
func (b *Backend) Load(ctx context.Context, name string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.presets[name]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("%s: %w", name, storage.ErrPresetNotFound)
	}
	return r.snap.Clone(), nil
}

// List returns all presets sorted by name
func (b *Backend) List(ctx context.Context) ([]storage.PresetInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]storage.PresetInfo, 0, len(b.presets))
	for _, r := range b.presets {
		out = append(out, storage.Info(r.snap, r.updated))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named preset
func (b *Backend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.presets[name]; !ok {
		return fmt.Errorf("%s: %w", name, storage.ErrPresetNotFound)
	}
	delete(b.presets, name)
	return nil
}
