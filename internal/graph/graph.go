// Package graph resolves the reference chain (spotter -> reference points -> guns/targets)
// into absolute positions.
package graph

import (
	"errors"
	"fmt"

	"github.com/artycalc/artycalc/internal/geo"
	"github.com/artycalc/artycalc/pkg/core"
)

// MapScale is the number of meters per map image pixel.
const MapScale = 2.0

var (
	// ErrReferenceCycle is reported when a reference point depends on itself or on a later point
	ErrReferenceCycle = errors.New("reference chain does not resolve")
	// ErrMissingInput is reported when a distance or azimuth field is empty
	ErrMissingInput = errors.New("missing distance or azimuth")
	// ErrMissingMapPosition is reported when a map-anchored gun has no map position
	ErrMissingMapPosition = errors.New("missing map position")
)

// Problem describes why an entity was placed on a placeholder position.
type Problem struct {
	Entity string
	Err    error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Entity, p.Err)
}

func (p Problem) Unwrap() error {
	return p.Err
}

// Result holds every resolved absolute position. Slices are indexed like the snapshot (0-based).
type Result struct {
	Targets    []geo.Point
	References []geo.Point
	Guns       []geo.Point
	// Chains holds, per gun, the anchor path from the spotter to the gun.
	Chains   []geo.Path
	Valid    bool
	Problems []Problem
}

type refState int

const (
	unvisited refState = iota
	visiting
	resolved
)

type resolver struct {
	snap     *core.Snapshot
	refs     []geo.Point
	state    []refState
	valid    bool
	problems []Problem
}

// Resolve computes absolute positions for all entities of the snapshot.
// Targets are resolved first, then reference points in index order, then guns.
// Resolution never fails: problems are reported and the entity is placed on its anchor.
func Resolve(snap *core.Snapshot) Result {
	r := &resolver{
		snap:  snap,
		refs:  make([]geo.Point, len(snap.References)),
		state: make([]refState, len(snap.References)),
		valid: true,
	}

	targets := make([]geo.Point, len(snap.Targets))
	for i, t := range snap.Targets {
		targets[i] = r.place(fmt.Sprintf("target %d", i+1), geo.Point{}, false, t.Dist, t.Angle)
	}

	for k := 1; k <= len(snap.References); k++ {
		r.reference(k)
	}

	guns := make([]geo.Point, len(snap.Guns))
	chains := make([]geo.Path, len(snap.Guns))
	for i, g := range snap.Guns {
		guns[i], chains[i] = r.gun(i+1, g)
	}

	return Result{
		Targets:    targets,
		References: r.refs,
		Guns:       guns,
		Chains:     chains,
		Valid:      r.valid,
		Problems:   r.problems,
	}
}

func (r *resolver) report(entity string, err error) {
	r.valid = false
	r.problems = append(r.problems, Problem{Entity: entity, Err: err})
}

// place applies an entity's own distance/azimuth to its anchor. When the anchor is not
// the spotter the stored azimuth points back toward the anchor and gets reversed.
func (r *resolver) place(entity string, anchor geo.Point, flip bool, dist, azim core.Number) geo.Point {
	d, okDist := dist.Get()
	a, okAzim := azim.Get()
	if !okDist || !okAzim {
		r.report(entity, ErrMissingInput)
		return anchor
	}
	if flip {
		a = geo.ReverseAzimuth(a)
	}
	return geo.AzimToCartesian(d, a, anchor)
}

// anchor returns the position an entity is measured from and whether it is the spotter.
// Ids that name no existing reference point are unknown and anchor on the spotter.
// Only reference points with an index below `before` may be used.
func (r *resolver) anchor(entity, ref string, before int) (geo.Point, bool) {
	k, ok := core.ParseRefPoint(ref)
	if !ok || k > len(r.refs) {
		return geo.Point{}, true
	}
	if k >= before {
		r.report(entity, fmt.Errorf("%s: %w", ref, ErrReferenceCycle))
		return geo.Point{}, true
	}
	if !r.reference(k) {
		r.report(entity, fmt.Errorf("%s: %w", ref, ErrReferenceCycle))
		return geo.Point{}, true
	}
	return r.refs[k-1], false
}

// reference resolves reference point k, returning false if it is part of a cycle.
func (r *resolver) reference(k int) bool {
	switch r.state[k-1] {
	case resolved:
		return true
	case visiting:
		return false
	}
	r.state[k-1] = visiting

	entity := fmt.Sprintf("reference %d", k)
	p := r.snap.References[k-1]
	anchor, spotter := r.anchor(entity, p.Ref, k)
	r.refs[k-1] = r.place(entity, anchor, !spotter, p.Dist, p.Angle)

	r.state[k-1] = resolved
	return true
}

// chain walks a reference id back to the spotter, returning the anchor path.
func (r *resolver) chain(ref string) geo.Path {
	var rev geo.Path
	seen := make(map[int]bool)
	for {
		k, ok := core.ParseRefPoint(ref)
		if !ok || k > len(r.refs) || seen[k] {
			break
		}
		seen[k] = true
		rev = append(rev, r.refs[k-1])
		ref = r.snap.References[k-1].Ref
	}
	path := geo.Path{{}}
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

func (r *resolver) gun(i int, g core.Gun) (geo.Point, geo.Path) {
	entity := fmt.Sprintf("gun %d", i)

	if g.Ref == core.RefMap {
		pos, ok := r.mapAnchor(g)
		if !ok {
			r.report(entity, ErrMissingMapPosition)
		}
		return pos, geo.Path{{}, pos}
	}

	// guns may use any reference point
	anchor, spotter := r.anchor(entity, g.Ref, len(r.refs)+1)
	pos := r.place(entity, anchor, !spotter, g.Dist, g.Angle)
	path := geo.Path{{}}
	if !spotter {
		path = r.chain(g.Ref)
	}
	return pos, append(path, pos)
}

// mapAnchor converts the pixel offset between gun and spotter on the map image into meters.
// Map pixel Y grows southward.
func (r *resolver) mapAnchor(g core.Gun) (geo.Point, bool) {
	gx, okGX := g.RefMapPosX.Get()
	gy, okGY := g.RefMapPosY.Get()
	sx, okSX := r.snap.Spotter.MapPosX.Get()
	sy, okSY := r.snap.Spotter.MapPosY.Get()
	if !okGX || !okGY || !okSX || !okSY {
		return geo.Point{}, false
	}
	return geo.Point{
		X: (gx - sx) * MapScale,
		Y: -(gy - sy) * MapScale,
	}, true
}
