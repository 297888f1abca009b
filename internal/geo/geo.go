package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
)

// PLANAR COORDINATES
// Everything is expressed in meters relative to the spotter. Y grows northward and
// X grows eastward; azimuths are compass bearings, 0 = north, clockwise positive.

// ErrInvalidPolar is returned when a "dist,azim" string cannot be parsed
var ErrInvalidPolar = errors.New("invalid distance/azimuth provided")

// Point is a planar position in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polar is a distance/azimuth pair.
type Polar struct {
	Dist float64 `json:"dist"`
	Azim float64 `json:"azim"`
}

// XY converts the point for use with simplefeatures geometry.
func (p Point) XY() geom.XY {
	return geom.XY{X: p.X, Y: p.Y}
}

// FromXY converts a simplefeatures XY back into a Point.
func FromXY(xy geom.XY) Point {
	return Point{X: xy.X, Y: xy.Y}
}

// Add returns the vector sum of both points.
func (p Point) Add(o Point) Point {
	return FromXY(p.XY().Add(o.XY()))
}

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Point {
	return FromXY(p.XY().Sub(o.XY()))
}

// DistanceTo returns the straight-line distance between both points.
func (p Point) DistanceTo(o Point) float64 {
	return p.XY().Sub(o.XY()).Length()
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

func radToDeg(rad float64) float64 {
	return rad * (180 / math.Pi)
}

// azimToPolar turns a compass bearing into a counter-clockwise math angle from +X.
func azimToPolar(azim float64) float64 {
	return (azim - 90) * -1
}

// AzimToCartesian converts a distance and azimuth into a position offset from origin.
func AzimToCartesian(dist, azim float64, origin Point) Point {
	polar := degToRad(azimToPolar(azim))
	return Point{
		X: origin.X + dist*math.Cos(polar),
		Y: origin.Y + dist*math.Sin(polar),
	}
}

// CartesianToAzim returns the distance and azimuth from src to dst.
// A zero distance reports azimuth 0.
func CartesianToAzim(dst, src Point) Polar {
	dx := dst.X - src.X
	dy := dst.Y - src.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return Polar{}
	}

	azim := radToDeg(math.Asin(math.Min(math.Abs(dx)/dist, 1)))
	switch {
	case dx < 0 && dy >= 0:
		azim = 360 - azim
	case dx < 0 && dy < 0:
		azim = 180 + azim
	case dx >= 0 && dy < 0:
		azim = 180 - azim
	}
	return Polar{Dist: dist, Azim: azim}
}

// NormalizeAzimuth wraps any angle into [0,360).
func NormalizeAzimuth(azim float64) float64 {
	if math.IsNaN(azim) || math.IsInf(azim, 0) {
		return 0
	}
	azim = math.Mod(azim, 360)
	if azim < 0 {
		azim += 360
	}
	if azim >= 360 {
		azim = 0
	}
	return azim
}

// ReverseAzimuth returns the bearing pointing the opposite way.
func ReverseAzimuth(azim float64) float64 {
	return NormalizeAzimuth(azim + 180)
}

// Truncate1 cuts a value down to one decimal place (floor, not rounding).
func Truncate1(v float64) float64 {
	return math.Floor(v*10) / 10
}

// Round2 rounds a value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PolarFromString parses a string in the format "dist,azim" into a Polar.
// The azimuth is normalized into [0,360) and the distance must not be negative.
func PolarFromString(s string) (Polar, error) {
	split := strings.Split(s, ",")
	if len(split) != 2 {
		return Polar{}, ErrInvalidPolar
	}
	dist, err := strconv.ParseFloat(strings.TrimSpace(split[0]), 64)
	if err != nil || !finite(dist) || dist < 0 {
		return Polar{}, ErrInvalidPolar
	}
	azim, err := strconv.ParseFloat(strings.TrimSpace(split[1]), 64)
	if err != nil || !finite(azim) {
		return Polar{}, ErrInvalidPolar
	}
	return Polar{Dist: dist, Azim: NormalizeAzimuth(azim)}, nil
}
