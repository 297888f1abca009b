// Package ballistics holds the per-model gun table and the spread and wind drift formulas.
package ballistics

import (
	"sort"

	"github.com/artycalc/artycalc/internal/geo"
)

// DefaultModel is used for unknown or empty model names.
const DefaultModel = "mortar"

// WindReferenceLevel is the wind level the table's drift values are measured at.
const WindReferenceLevel = 5.0

// GunSpec describes the dispersion and wind sensitivity of a gun model. All values are meters.
type GunSpec struct {
	Model      string  `json:"model"`
	SpreadMin  float64 `json:"spreadMin"`
	SpreadMax  float64 `json:"spreadMax"`
	RangeMin   float64 `json:"rangeMin"`
	RangeMax   float64 `json:"rangeMax"`
	WindDisMin float64 `json:"windDisMin"`
	WindDisMax float64 `json:"windDisMax"`
}

var specs = map[string]GunSpec{
	"mortar": {Model: "mortar", SpreadMin: 2.5, SpreadMax: 9.45, RangeMin: 45, RangeMax: 80, WindDisMin: 5, WindDisMax: 10},
	"120mm":  {Model: "120mm", SpreadMin: 2.5, SpreadMax: 14.5, RangeMin: 100, RangeMax: 250, WindDisMin: 10, WindDisMax: 25},
	"150mm":  {Model: "150mm", SpreadMin: 25, SpreadMax: 35, RangeMin: 200, RangeMax: 350, WindDisMin: 20, WindDisMax: 30},
	"rocket": {Model: "rocket", SpreadMin: 22, SpreadMax: 32, RangeMin: 225, RangeMax: 350, WindDisMin: 20, WindDisMax: 35},
	"300mm":  {Model: "300mm", SpreadMin: 40, SpreadMax: 50, RangeMin: 400, RangeMax: 1000, WindDisMin: 25, WindDisMax: 50},
}

// Lookup returns the spec for a model, falling back to the default model.
func Lookup(model string) GunSpec {
	if spec, ok := specs[model]; ok {
		return spec
	}
	return specs[DefaultModel]
}

// Known reports whether the model has its own table entry.
func Known(model string) bool {
	_, ok := specs[model]
	return ok
}

// Models returns every spec ordered by minimum range.
func Models() []GunSpec {
	out := make([]GunSpec, 0, len(specs))
	for _, spec := range specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RangeMin == out[j].RangeMin {
			return out[i].Model < out[j].Model
		}
		return out[i].RangeMin < out[j].RangeMin
	})
	return out
}

// interpolate maps dist from [RangeMin,RangeMax] onto [lo,hi], clamping outside the range.
func (s GunSpec) interpolate(dist, lo, hi float64) float64 {
	if dist <= s.RangeMin {
		return lo
	}
	if dist >= s.RangeMax {
		return hi
	}
	t := (dist - s.RangeMin) / (s.RangeMax - s.RangeMin)
	return lo + (hi-lo)*t
}

// InRange reports whether dist lies within the gun's firing range.
func (s GunSpec) InRange(dist float64) bool {
	return dist >= s.RangeMin && dist <= s.RangeMax
}

// Spread returns the expected dispersion radius at the given distance.
func Spread(spec GunSpec, dist float64) float64 {
	return spec.interpolate(dist, spec.SpreadMin, spec.SpreadMax)
}

// WindCorrection returns the aim offset compensating wind drift. The drift distance is
// measured at WindReferenceLevel and scales linearly with windSpeed; the offset points
// along the reciprocal of windAzim.
func WindCorrection(spec GunSpec, dist, windSpeed, windAzim float64) geo.Point {
	if windSpeed <= 0 {
		return geo.Point{}
	}
	drift := spec.interpolate(dist, spec.WindDisMin, spec.WindDisMax)
	drift *= windSpeed / WindReferenceLevel
	return geo.AzimToCartesian(drift, geo.ReverseAzimuth(windAzim), geo.Point{})
}
