package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot_Minimums(t *testing.T) {
	s := NewSnapshot()

	require.Len(t, s.Targets, 1)
	require.Len(t, s.Guns, 1)
	assert.Empty(t, s.References)
	assert.Equal(t, Index(1), s.Guns[0].Target)
	assert.Equal(t, RefSpotter, s.Guns[0].Ref)
}

func TestDeleteTarget_RejectsLast(t *testing.T) {
	s := NewSnapshot()

	err := s.DeleteTarget(1)
	assert.True(t, errors.Is(err, ErrLastTarget))
	assert.Len(t, s.Targets, 1)
}

func TestDeleteGun_RejectsLast(t *testing.T) {
	s := NewSnapshot()

	err := s.DeleteGun(1)
	assert.True(t, errors.Is(err, ErrLastGun))
	assert.Len(t, s.Guns, 1)
}

func TestDeleteTarget_RenumbersGunTargets(t *testing.T) {
	s := NewSnapshot()
	s.AddTarget()
	s.AddTarget()
	s.Targets[0].Dist = Num(10)
	s.Targets[1].Dist = Num(20)
	s.Targets[2].Dist = Num(30)
	s.AddGun()
	s.AddGun()
	s.Guns[0].Target = 1
	s.Guns[1].Target = 2
	s.Guns[2].Target = 3

	require.NoError(t, s.DeleteTarget(2))

	require.Len(t, s.Targets, 2)
	assert.Equal(t, 30.0, s.Targets[1].Dist.Value)
	assert.Equal(t, Index(1), s.Guns[0].Target)
	assert.Equal(t, Index(1), s.Guns[1].Target, "gun on deleted target falls back to 1")
	assert.Equal(t, Index(2), s.Guns[2].Target, "gun keeps pointing at the same target")
}

func TestDeleteTarget_OutOfRange(t *testing.T) {
	s := NewSnapshot()
	s.AddTarget()

	err := s.DeleteTarget(5)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestDeleteReference_ShiftsAnchors(t *testing.T) {
	s := NewSnapshot()
	s.AddReference()
	s.AddReference()
	s.AddReference()
	s.References[1].Ref = RefPoint(1)
	s.References[2].Ref = RefPoint(2)
	s.AddGun()
	s.Guns[0].Ref = RefPoint(1)
	s.Guns[1].Ref = RefPoint(3)

	require.NoError(t, s.DeleteReference(1))

	require.Len(t, s.References, 2)
	assert.Equal(t, RefSpotter, s.References[0].Ref)
	assert.Equal(t, RefPoint(1), s.References[1].Ref)
	assert.Equal(t, RefSpotter, s.Guns[0].Ref)
	assert.Equal(t, RefPoint(2), s.Guns[1].Ref)
}

func TestDeleteReference_AllowsEmpty(t *testing.T) {
	s := NewSnapshot()
	s.AddReference()

	require.NoError(t, s.DeleteReference(1))
	assert.Empty(t, s.References)
}

func TestGunAccessor(t *testing.T) {
	s := NewSnapshot()

	g, err := s.Gun(1)
	require.NoError(t, err)
	g.Model = "150mm"
	assert.Equal(t, "150mm", s.Guns[0].Model)

	_, err = s.Gun(2)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestClone_IsDeep(t *testing.T) {
	s := NewSnapshot()
	c := s.Clone()
	c.Targets[0].Dist = Num(99)

	assert.False(t, s.Targets[0].Dist.Set)
}

func TestImport_MatchesCounts(t *testing.T) {
	s := NewSnapshot()
	s.AddGun()
	s.AddGun()

	preset := Snapshot{
		Name:       "Ridge",
		Targets:    []Target{{Dist: Num(100), Angle: Num(-10)}, {Dist: Num(200), Angle: Num(370)}},
		References: []ReferencePoint{{Ref: RefSpotter, Dist: Num(50), Angle: Num(90)}},
		Guns:       []Gun{{Model: "120mm", Target: 2, Ref: RefPoint(1), Dist: Num(10), Angle: Num(0)}},
	}
	s.Import(preset)

	assert.Equal(t, "Ridge", s.Name)
	require.Len(t, s.Targets, 2)
	require.Len(t, s.References, 1)
	require.Len(t, s.Guns, 1)
	assert.Equal(t, 350.0, s.Targets[0].Angle.Value)
	assert.Equal(t, 10.0, s.Targets[1].Angle.Value)
	assert.Equal(t, "120mm", s.Guns[0].Model)
	assert.Equal(t, Index(2), s.Guns[0].Target)
}

func TestImport_KeepsMinimums(t *testing.T) {
	s := NewSnapshot()
	s.AddTarget()
	s.Targets[0].Dist = Num(5)

	s.Import(Snapshot{})

	require.Len(t, s.Targets, 1)
	require.Len(t, s.Guns, 1)
	assert.False(t, s.Targets[0].Dist.Set)
	assert.Equal(t, RefSpotter, s.Guns[0].Ref)
}

func TestPresetJSON_FormExport(t *testing.T) {
	raw := `{
		"name": "test",
		"spotter": {"mapIdent": "deadlands", "mapPosX": "512", "mapPosY": 300},
		"wind": {"level": "2", "angle": ""},
		"targets": [{"dist": "100", "angle": "0"}, {"dist": "", "angle": null}],
		"references": [{"ref": "spotter", "dist": 20, "angle": 45}],
		"guns": [{"model": "mortar", "target": "2", "ref": "ref-point-1", "dist": "15.5", "angle": "abc",
		          "refMapPosX": "", "refMapPosY": "", "lastHitDist": "", "lastHitAzimAngle": "",
		          "correctionX": "1.5", "correctionY": "-2"}]
	}`

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, Num(512), s.Spotter.MapPosX)
	assert.Equal(t, Num(300), s.Spotter.MapPosY)
	assert.Equal(t, Num(2), s.Wind.Level)
	assert.False(t, s.Wind.Angle.Set)
	assert.Equal(t, Num(100), s.Targets[0].Dist)
	assert.False(t, s.Targets[1].Dist.Set)
	assert.False(t, s.Targets[1].Angle.Set)
	assert.Equal(t, Index(2), s.Guns[0].Target)
	assert.Equal(t, Num(15.5), s.Guns[0].Dist)
	assert.False(t, s.Guns[0].Angle.Set, "invalid text is treated as empty")
	x, y := s.Guns[0].Correction()
	assert.Equal(t, 1.5, x)
	assert.Equal(t, -2.0, y)
	assert.False(t, s.Guns[0].HasLastHit())

	out, err := json.Marshal(s)
	require.NoError(t, err)

	var again Snapshot
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, s, again)
}

func TestParseRefPoint(t *testing.T) {
	k, ok := ParseRefPoint("ref-point-3")
	assert.True(t, ok)
	assert.Equal(t, 3, k)

	for _, ref := range []string{"spotter", "map", "ref-point-", "ref-point-0", "ref-point-x", ""} {
		_, ok := ParseRefPoint(ref)
		assert.False(t, ok, "ref %q", ref)
	}
}

func TestHasLastHit(t *testing.T) {
	g := Gun{LastHitDist: Num(0), LastHitAzimAngle: Num(10)}
	assert.False(t, g.HasLastHit())

	g.LastHitDist = Num(25)
	assert.True(t, g.HasLastHit())

	g.LastHitAzimAngle = Number{}
	assert.False(t, g.HasLastHit())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  Number
	}{
		{"120.5", Num(120.5)},
		{" -30 ", Num(-30)},
		{"", Number{}},
		{"abc", Number{}},
		{"NaN", Number{}},
		{"inf", Number{}},
		{"-Infinity", Number{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumber(tt.input))
		})
	}
}

func TestPresetJSON_NonFiniteStringsAreEmpty(t *testing.T) {
	var p Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"targets":[{"dist":"NaN","angle":"inf"}]}`), &p))

	require.Len(t, p.Targets, 1)
	assert.False(t, p.Targets[0].Dist.Set)
	assert.False(t, p.Targets[0].Angle.Set)
}
