package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/scene"
	"github.com/artycalc/artycalc/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRun writes a config that keeps logs and presets inside a temp dir.
func setupRun(t *testing.T) string {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`{"logLevel":"error","logsDir":%q,"storage":{"type":"file","file":{"dir":%q}}}`,
		filepath.Join(dir, "logs"), filepath.Join(dir, "presets"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))
	return dir
}

func writePreset(t *testing.T, dir string, p core.Snapshot) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	path := filepath.Join(dir, "preset.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func northPreset() core.Snapshot {
	return core.Snapshot{
		Name:    "north",
		Targets: []core.Target{{Dist: core.Num(100), Angle: core.Num(0)}},
		Guns: []core.Gun{{
			Model: "mortar", Target: 1, Ref: core.RefSpotter,
			Dist: core.Num(0), Angle: core.Num(0),
			LastHitDist: core.Num(120), LastHitAzimAngle: core.Num(0),
		}},
	}
}

func runArgs(t *testing.T, dir string, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(append([]string{"--config", dir}, args...), strings.NewReader(""), &out)
	return code, out.String()
}

func TestRun_Usage(t *testing.T) {
	dir := setupRun(t)

	code, _ := runArgs(t, dir)
	assert.Equal(t, 2, code)

	code, _ = runArgs(t, dir, "fly")
	assert.Equal(t, 2, code)

	code, _ = runArgs(t, dir, "solve")
	assert.Equal(t, 2, code)
}

func TestRun_Guns(t *testing.T) {
	dir := setupRun(t)
	code, out := runArgs(t, dir, "guns")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "mortar")
	assert.Contains(t, out, "300mm")
}

func TestRun_Solve(t *testing.T) {
	dir := setupRun(t)
	path := writePreset(t, dir, northPreset())

	code, out := runArgs(t, dir, "solve", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Gun 1 (mortar) -> Target 1: Dist 100.0m Azim 0.0deg")
}

func TestRun_Calibrate(t *testing.T) {
	dir := setupRun(t)
	path := writePreset(t, dir, northPreset())

	code, out := runArgs(t, dir, "calibrate", path, "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "full")
	assert.Contains(t, out, "Dist 80.0m")

	snap, err := readPresetFile(path)
	require.NoError(t, err)
	assert.Equal(t, core.Num(20), snap.Guns[0].CorrectionY)

	code, _ = runArgs(t, dir, "calibrate", path, "3")
	assert.Equal(t, 1, code)
}

func TestRun_Preset(t *testing.T) {
	dir := setupRun(t)
	path := writePreset(t, dir, northPreset())

	code, out := runArgs(t, dir, "preset", "save", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, `saved "north"`)

	code, out = runArgs(t, dir, "preset", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "north")

	dst := filepath.Join(dir, "copy.json")
	code, _ = runArgs(t, dir, "preset", "load", "north", dst)
	require.Equal(t, 0, code)
	snap, err := readPresetFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "north", snap.Name)

	code, _ = runArgs(t, dir, "preset", "delete", "north")
	require.Equal(t, 0, code)
	code, _ = runArgs(t, dir, "preset", "delete", "north")
	assert.Equal(t, 1, code)
}

func TestRun_Repl(t *testing.T) {
	dir := setupRun(t)

	in := strings.NewReader(strings.Join([]string{
		"target.set 1 dist=100 angle=0",
		"gun.set 1 dist=0 angle=0",
		"solve",
		"bogus",
		"help",
		"quit",
	}, "\n"))
	var out bytes.Buffer
	code := run([]string{"--config", dir, "repl"}, in, &out)
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Dist 100.0m Azim 0.0deg")
	assert.Contains(t, out.String(), "error: unknown command")
	assert.Contains(t, out.String(), "gun.set <i> model=")
}

func TestPrintScene_ReferenceChain(t *testing.T) {
	snap := core.NewSnapshot()
	snap.Targets[0] = core.Target{Dist: core.Num(300), Angle: core.Num(0)}
	snap.AddReference()
	snap.References[0] = core.ReferencePoint{Ref: core.RefSpotter, Dist: core.Num(100), Angle: core.Num(0)}
	snap.Guns[0].Ref = core.RefPoint(1)
	snap.Guns[0].Dist = core.Num(50)
	snap.Guns[0].Angle = core.Num(0)

	var out bytes.Buffer
	printScene(&out, scene.Recompute(snap))

	assert.Contains(t, out.String(), "laid via 1 reference(s), 150.0m of legs")
}
