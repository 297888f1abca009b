// pkg/core/snapshot.go
package core

import (
	"errors"
	"fmt"

	"github.com/artycalc/artycalc/internal/geo"
)

var (
	// ErrLastTarget is returned when deleting the only remaining target
	ErrLastTarget = errors.New("at least 1 target is required")
	// ErrLastGun is returned when deleting the only remaining gun
	ErrLastGun = errors.New("at least 1 gun is required")
	// ErrIndexOutOfRange is returned for indexes that do not name an entity
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Spotter holds the spotter's position on the map image, used by map-anchored guns.
type Spotter struct {
	MapIdent string `json:"mapIdent"`
	MapPosX  Number `json:"mapPosX"`
	MapPosY  Number `json:"mapPosY"`
}

// Wind is the scene-wide wind. Angle is the direction the wind blows from.
type Wind struct {
	Level Number `json:"level"`
	Angle Number `json:"angle"`
}

// Target is positioned relative to the spotter only.
type Target struct {
	Dist  Number `json:"dist"`
	Angle Number `json:"angle"`
}

// ReferencePoint is positioned relative to the spotter or an earlier reference point.
// When anchored on a reference point, Angle is the bearing from this point back to the anchor.
type ReferencePoint struct {
	Ref   string `json:"ref"`
	Dist  Number `json:"dist"`
	Angle Number `json:"angle"`
}

// Gun is one firing position with its ballistic model and manual correction.
type Gun struct {
	Model            string `json:"model"`
	Target           Index  `json:"target"`
	Ref              string `json:"ref"`
	Dist             Number `json:"dist"`
	Angle            Number `json:"angle"`
	RefMapPosX       Number `json:"refMapPosX"`
	RefMapPosY       Number `json:"refMapPosY"`
	LastHitDist      Number `json:"lastHitDist"`
	LastHitAzimAngle Number `json:"lastHitAzimAngle"`
	CorrectionX      Number `json:"correctionX"`
	CorrectionY      Number `json:"correctionY"`
}

// HasLastHit reports whether a usable hit observation was entered.
func (g Gun) HasLastHit() bool {
	d, ok := g.LastHitDist.Get()
	return ok && d > 0 && g.LastHitAzimAngle.Set
}

// Correction returns the manual correction, treating empty fields as 0.
func (g Gun) Correction() (x, y float64) {
	return g.CorrectionX.Or(0), g.CorrectionY.Or(0)
}

// Snapshot is the complete caller-owned input state. Array order defines entity index.
type Snapshot struct {
	Name       string           `json:"name"`
	Spotter    Spotter          `json:"spotter"`
	Wind       Wind             `json:"wind"`
	Targets    []Target         `json:"targets"`
	References []ReferencePoint `json:"references"`
	Guns       []Gun            `json:"guns"`
}

// NewSnapshot creates a snapshot with the minimum of one target and one gun.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.AddTarget()
	s.AddGun()
	return s
}

func newGun() Gun {
	return Gun{
		Model:  "",
		Target: 1,
		Ref:    RefSpotter,
	}
}

// AddTarget appends an empty target and returns its index.
func (s *Snapshot) AddTarget() int {
	s.Targets = append(s.Targets, Target{})
	return len(s.Targets)
}

// DeleteTarget removes target i and renumbers. Guns aimed at the removed target
// are re-aimed at target 1; guns aimed at later targets keep their target.
func (s *Snapshot) DeleteTarget(i int) error {
	if len(s.Targets) <= 1 {
		return ErrLastTarget
	}
	if i < 1 || i > len(s.Targets) {
		return fmt.Errorf("target %d: %w", i, ErrIndexOutOfRange)
	}
	s.Targets = append(s.Targets[:i-1], s.Targets[i:]...)
	for g := range s.Guns {
		switch t := int(s.Guns[g].Target); {
		case t == i:
			s.Guns[g].Target = 1
		case t > i:
			s.Guns[g].Target = Index(t - 1)
		}
	}
	return nil
}

// AddReference appends a reference point anchored on the spotter and returns its index.
func (s *Snapshot) AddReference() int {
	s.References = append(s.References, ReferencePoint{Ref: RefSpotter})
	return len(s.References)
}

// DeleteReference removes reference point k. Entities anchored on it fall back to the
// spotter; anchors on later reference points are renumbered.
func (s *Snapshot) DeleteReference(k int) error {
	if k < 1 || k > len(s.References) {
		return fmt.Errorf("reference %d: %w", k, ErrIndexOutOfRange)
	}
	s.References = append(s.References[:k-1], s.References[k:]...)
	for r := range s.References {
		s.References[r].Ref = shiftRef(s.References[r].Ref, k)
	}
	for g := range s.Guns {
		s.Guns[g].Ref = shiftRef(s.Guns[g].Ref, k)
	}
	return nil
}

// AddGun appends a gun aimed at target 1 and returns its index.
func (s *Snapshot) AddGun() int {
	s.Guns = append(s.Guns, newGun())
	return len(s.Guns)
}

// DeleteGun removes gun i and renumbers.
func (s *Snapshot) DeleteGun(i int) error {
	if len(s.Guns) <= 1 {
		return ErrLastGun
	}
	if i < 1 || i > len(s.Guns) {
		return fmt.Errorf("gun %d: %w", i, ErrIndexOutOfRange)
	}
	s.Guns = append(s.Guns[:i-1], s.Guns[i:]...)
	return nil
}

// Gun returns a pointer to gun i for in-place edits.
func (s *Snapshot) Gun(i int) (*Gun, error) {
	if i < 1 || i > len(s.Guns) {
		return nil, fmt.Errorf("gun %d: %w", i, ErrIndexOutOfRange)
	}
	return &s.Guns[i-1], nil
}

// Target returns a pointer to target i for in-place edits.
func (s *Snapshot) Target(i int) (*Target, error) {
	if i < 1 || i > len(s.Targets) {
		return nil, fmt.Errorf("target %d: %w", i, ErrIndexOutOfRange)
	}
	return &s.Targets[i-1], nil
}

// Reference returns a pointer to reference point k for in-place edits.
func (s *Snapshot) Reference(k int) (*ReferencePoint, error) {
	if k < 1 || k > len(s.References) {
		return nil, fmt.Errorf("reference %d: %w", k, ErrIndexOutOfRange)
	}
	return &s.References[k-1], nil
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() Snapshot {
	c := *s
	c.Targets = append([]Target(nil), s.Targets...)
	c.References = append([]ReferencePoint(nil), s.References...)
	c.Guns = append([]Gun(nil), s.Guns...)
	return c
}

// Import rebuilds the snapshot from a preset: entity counts are first matched by
// adding or removing entities (keeping the minimum of one target and one gun),
// then every field is populated in array order and azimuths are normalized.
func (s *Snapshot) Import(p Snapshot) {
	for len(s.Targets) < len(p.Targets) {
		s.AddTarget()
	}
	for len(s.Targets) > 1 && len(s.Targets) > len(p.Targets) {
		_ = s.DeleteTarget(len(s.Targets))
	}
	for len(s.References) < len(p.References) {
		s.AddReference()
	}
	for len(s.References) > len(p.References) {
		_ = s.DeleteReference(len(s.References))
	}
	for len(s.Guns) < len(p.Guns) {
		s.AddGun()
	}
	for len(s.Guns) > 1 && len(s.Guns) > len(p.Guns) {
		_ = s.DeleteGun(len(s.Guns))
	}

	s.Name = p.Name
	s.Spotter = p.Spotter
	s.Wind = p.Wind
	for i := range s.Targets {
		s.Targets[i] = Target{}
		if i < len(p.Targets) {
			s.Targets[i] = p.Targets[i]
		}
	}
	copy(s.References, p.References)
	for i := range s.Guns {
		s.Guns[i] = newGun()
		if i < len(p.Guns) {
			s.Guns[i] = p.Guns[i]
		}
	}
	s.Normalize()
}

// Normalize wraps every azimuth field into [0,360).
func (s *Snapshot) Normalize() {
	normalize := func(n *Number) {
		if n.Set {
			n.Value = geo.NormalizeAzimuth(n.Value)
		}
	}
	normalize(&s.Wind.Angle)
	for i := range s.Targets {
		normalize(&s.Targets[i].Angle)
	}
	for i := range s.References {
		normalize(&s.References[i].Angle)
	}
	for i := range s.Guns {
		normalize(&s.Guns[i].Angle)
		normalize(&s.Guns[i].LastHitAzimAngle)
	}
}
