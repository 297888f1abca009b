// Package filestore implements storage.Backend with one JSON file per preset,
// optionally gzip-compressed.
package filestore

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/pkg/core"
)

const (
	extJSON = ".json"
	extGzip = ".json.gz"
)

var nameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_")

// Backend stores presets as files under a directory
type Backend struct {
	cfg config.FileStoreConfig
	mu  sync.RWMutex
}

// New creates a new file backend
func New(cfg config.FileStoreConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init creates the preset directory.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}
	return nil
}

// Close is a no-op; every write is flushed when it completes.
func (b *Backend) Close() error {
	return nil
}

// fileName maps a preset name to its base file name without extension.
func fileName(name string) (string, error) {
	base := nameReplacer.Replace(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidName, name)
	}
	return base, nil
}

func (b *Backend) path(base string, compressed bool) string {
	if compressed {
		return filepath.Join(b.cfg.Dir, base+extGzip)
	}
	return filepath.Join(b.cfg.Dir, base+extJSON)
}

// Save writes the preset, replacing an existing one with the same name in either format.
func (b *Backend) Save(ctx context.Context, s core.Snapshot) error {
	base, err := fileName(s.Name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.path(base, b.cfg.Compress)
	tmp := target + ".tmp"
	if b.cfg.Compress {
		err = writeGzipJSON(tmp, s)
	} else {
		err = writeJSON(tmp, s)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace preset file: %w", err)
	}

	// drop the copy in the other format
	stale := b.path(base, !b.cfg.Compress)
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale preset file: %w", err)
	}
	return nil
}

// Load reads the preset with the given name.
func (b *Backend) Load(ctx context.Context, name string) (core.Snapshot, error) {
	base, err := fileName(name)
	if err != nil {
		return core.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, compressed := range []bool{b.cfg.Compress, !b.cfg.Compress} {
		s, err := readPreset(b.path(base, compressed))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return s, err
	}
	return core.Snapshot{}, fmt.Errorf("%w: %s", storage.ErrPresetNotFound, name)
}

// List returns every readable preset in the directory, sorted by name.
// Files that fail to decode are skipped.
func (b *Backend) List(ctx context.Context) ([]storage.PresetInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries, err := os.ReadDir(b.cfg.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	var out []storage.PresetInfo
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, extJSON) || strings.HasSuffix(name, extGzip)) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s, err := readPreset(filepath.Join(b.cfg.Dir, name))
		if err != nil {
			continue
		}
		out = append(out, storage.Info(s, info.ModTime().UTC()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the preset in both formats.
func (b *Backend) Delete(ctx context.Context, name string) error {
	base, err := fileName(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := false
	for _, compressed := range []bool{false, true} {
		err := os.Remove(b.path(base, compressed))
		switch {
		case err == nil:
			removed = true
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to delete preset: %w", err)
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", storage.ErrPresetNotFound, name)
	}
	return nil
}

// readPreset decodes a preset file. The stored name is taken from the JSON; files
// without one are named after the file.
func readPreset(path string) (core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Snapshot{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, extGzip) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("failed to open gzip preset: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var s core.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to decode preset %s: %w", filepath.Base(path), err)
	}
	if s.Name == "" {
		base := filepath.Base(path)
		base = strings.TrimSuffix(strings.TrimSuffix(base, extGzip), extJSON)
		s.Name = base
	}
	return s, nil
}

func writeJSON(path string, s core.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

func writeGzipJSON(path string, s core.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(s)
}
