// Package correction derives a gun's manual correction offset from an observed hit.
package correction

import (
	"github.com/artycalc/artycalc/internal/geo"
)

// DampenFactor bounds the near-miss band: misses below DampenFactor*radius are softened.
const DampenFactor = 1.5

// Verdict classifies an observed hit.
type Verdict string

const (
	NoObservation Verdict = "no-observation"
	WithinSpread  Verdict = "within-spread"
	Dampened      Verdict = "dampened"
	Full          Verdict = "full"
)

// Input is everything needed to calibrate one gun.
type Input struct {
	Gun    geo.Point // resolved gun position
	Target geo.Point // resolved target position, not the aim target
	Radius float64   // aim spread radius
	Hit    geo.Polar // observed impact as distance/azimuth from the gun

	CorrectionX float64
	CorrectionY float64
}

// Output is the calibrated correction.
type Output struct {
	CorrectionX float64   `json:"correctionX"`
	CorrectionY float64   `json:"correctionY"`
	Verdict     Verdict   `json:"verdict"`
	Miss        geo.Polar `json:"miss"`
}

// Calibrate computes the new correction offset. The returned bool is false when the
// correction is left unchanged.
//
// Y is stored with the opposite sign of the map axis (the aim point applies -CorrectionY),
// so X and Y are updated with opposite signs.
func Calibrate(in Input) (Output, bool) {
	out := Output{
		CorrectionX: in.CorrectionX,
		CorrectionY: in.CorrectionY,
		Verdict:     NoObservation,
	}
	if in.Hit.Dist <= 0 {
		return out, false
	}

	hit := geo.AzimToCartesian(in.Hit.Dist, in.Hit.Azim, in.Gun)
	offset := geo.CartesianToAzim(hit, in.Target)
	out.Miss = offset

	switch {
	case offset.Dist <= in.Radius:
		out.Verdict = WithinSpread
		return out, false
	case offset.Dist < DampenFactor*in.Radius:
		out.Verdict = Dampened
		offset.Dist -= in.Radius
	default:
		out.Verdict = Full
	}

	delta := geo.AzimToCartesian(offset.Dist, offset.Azim, geo.Point{})
	out.CorrectionX = geo.Round2(in.CorrectionX - delta.X)
	out.CorrectionY = geo.Round2(in.CorrectionY + delta.Y)
	return out, true
}
