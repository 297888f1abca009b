// Package scene turns an input snapshot into a fully resolved scene: absolute positions,
// aim points, spreads and firing solutions for every gun.
package scene

import (
	"fmt"

	"github.com/artycalc/artycalc/internal/ballistics"
	"github.com/artycalc/artycalc/internal/correction"
	"github.com/artycalc/artycalc/internal/geo"
	"github.com/artycalc/artycalc/internal/graph"
	"github.com/artycalc/artycalc/pkg/core"
)

// Spread is a dispersion circle.
type Spread struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Solution is a firing instruction, truncated to one decimal for display.
type Solution struct {
	Target  int     `json:"target"`
	Dist    float64 `json:"dist"`
	Azim    float64 `json:"azim"`
	InRange bool    `json:"inRange"`
	Text    string  `json:"text"`
}

// Gun is a resolved gun with its derived aim data.
type Gun struct {
	Index     int                `json:"index"`
	Spec      ballistics.GunSpec `json:"spec"`
	Position  geo.Point          `json:"position"`
	Chain     geo.Path           `json:"chain"`
	TargetID  int                `json:"targetId"`
	Target    geo.Point          `json:"target"`
	Wind      geo.Point          `json:"wind"`
	AimTarget geo.Point          `json:"aimTarget"`
	AimSpread Spread             `json:"aimSpread"`
	Solution  Solution           `json:"solution"`
	// Solutions holds this gun's uncorrected solution for every target, in target order.
	Solutions []Solution `json:"solutions"`
	LastHit   *geo.Point `json:"lastHit,omitempty"`
}

// Scene is rebuilt from scratch on every recompute.
type Scene struct {
	Targets    []geo.Point     `json:"targets"`
	References []geo.Point     `json:"references"`
	Guns       []Gun           `json:"guns"`
	Valid      bool            `json:"valid"`
	Problems   []graph.Problem `json:"-"`
}

// FormatSolution renders a firing instruction the way operators read it out.
func FormatSolution(dist, azim float64) string {
	return fmt.Sprintf("Dist %.1fm Azim %.1fdeg", dist, azim)
}

// Line is the one-line report for a gun, e.g.
// "Gun 1 (mortar) -> Target 1: Dist 60.0m Azim 0.0deg".
func (g Gun) Line() string {
	line := fmt.Sprintf("Gun %d (%s) -> Target %d: %s", g.Index, g.Spec.Model, g.TargetID, g.Solution.Text)
	if !g.Solution.InRange {
		line += " [out of range]"
	}
	return line
}

func solve(from, to geo.Point, spec ballistics.GunSpec, target int) Solution {
	polar := geo.CartesianToAzim(to, from)
	dist := geo.Truncate1(polar.Dist)
	azim := geo.Truncate1(polar.Azim)
	return Solution{
		Target:  target,
		Dist:    dist,
		Azim:    azim,
		InRange: spec.InRange(polar.Dist),
		Text:    FormatSolution(dist, azim),
	}
}

// Recompute builds the scene for a snapshot. It has no side effects and may be called
// as often as needed.
func Recompute(snap *core.Snapshot) Scene {
	res := graph.Resolve(snap)
	sc := Scene{
		Targets:    res.Targets,
		References: res.References,
		Guns:       make([]Gun, len(snap.Guns)),
		Valid:      res.Valid,
		Problems:   res.Problems,
	}

	windLevel := snap.Wind.Level.Or(0)
	windAzim := snap.Wind.Angle.Or(0)

	for i, g := range snap.Guns {
		spec := ballistics.Lookup(g.Model)
		pos := res.Guns[i]

		targetID := int(g.Target)
		if targetID < 1 || targetID > len(res.Targets) {
			sc.Valid = false
			sc.Problems = append(sc.Problems, graph.Problem{
				Entity: fmt.Sprintf("gun %d", i+1),
				Err:    fmt.Errorf("target %d: %w", targetID, core.ErrIndexOutOfRange),
			})
			targetID = 1
		}
		var target geo.Point
		if len(res.Targets) > 0 {
			target = res.Targets[targetID-1]
		}

		wind := ballistics.WindCorrection(spec, pos.DistanceTo(target), windLevel, windAzim)
		cx, cy := g.Correction()
		aim := target.Add(geo.Point{X: cx, Y: -cy}).Add(wind)

		rg := Gun{
			Index:     i + 1,
			Spec:      spec,
			Position:  pos,
			Chain:     res.Chains[i],
			TargetID:  targetID,
			Target:    target,
			Wind:      wind,
			AimTarget: aim,
			AimSpread: Spread{
				X:      target.X,
				Y:      target.Y,
				Radius: ballistics.Spread(spec, pos.DistanceTo(aim)),
			},
			Solution:  solve(pos, aim, spec, targetID),
			Solutions: make([]Solution, len(res.Targets)),
		}
		for t, tp := range res.Targets {
			rg.Solutions[t] = solve(pos, tp, spec, t+1)
		}
		if g.HasLastHit() {
			hit := geo.AzimToCartesian(g.LastHitDist.Value, g.LastHitAzimAngle.Value, pos)
			rg.LastHit = &hit
		}
		sc.Guns[i] = rg
	}

	return sc
}

// Calibrate applies the correction engine to gun i (1-based) using its last hit and
// stores the new correction in the snapshot. The bool reports whether it changed.
func Calibrate(snap *core.Snapshot, i int) (correction.Output, bool, error) {
	g, err := snap.Gun(i)
	if err != nil {
		return correction.Output{}, false, err
	}
	cx, cy := g.Correction()
	// a hit needs both distance and azimuth, the same rule the scene uses to show it
	if !g.HasLastHit() {
		return correction.Output{CorrectionX: cx, CorrectionY: cy, Verdict: correction.NoObservation}, false, nil
	}
	sc := Recompute(snap)
	rg := sc.Guns[i-1]

	out, changed := correction.Calibrate(correction.Input{
		Gun:         rg.Position,
		Target:      rg.Target,
		Radius:      rg.AimSpread.Radius,
		Hit:         geo.Polar{Dist: g.LastHitDist.Value, Azim: g.LastHitAzimAngle.Value},
		CorrectionX: cx,
		CorrectionY: cy,
	})
	if changed {
		g.CorrectionX = core.Num(out.CorrectionX)
		g.CorrectionY = core.Num(out.CorrectionY)
	}
	return out, changed, nil
}
