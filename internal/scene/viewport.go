package scene

import (
	"math"

	"github.com/artycalc/artycalc/internal/geo"
	geom "github.com/peterstace/simplefeatures/geom"
)

// DefaultMargin is the space in meters kept around the outermost points.
const DefaultMargin = 10.0

// Viewport maps world meters (Y north) onto viewport pixels (Y down).
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Scale   float64 `json:"scale"`
	MinX    float64 `json:"minX"`
	MaxY    float64 `json:"maxY"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Points returns every absolute point of the scene, spotter included.
func (s Scene) Points() []geo.Point {
	points := []geo.Point{{}}
	points = append(points, s.Targets...)
	points = append(points, s.References...)
	for _, g := range s.Guns {
		points = append(points, g.Position, g.AimTarget)
		if g.LastHit != nil {
			points = append(points, *g.LastHit)
		}
	}
	return points
}

// Fit computes the uniform scale that fits the scene, grown by margin, into a
// width x height viewport with the box centered along the slack axis.
func Fit(s Scene, width, height, margin float64) Viewport {
	var env geom.Envelope
	for _, p := range s.Points() {
		// non-finite points are left out of the box
		if next, err := env.ExtendToIncludeXY(p.XY()); err == nil {
			env = next
		}
	}
	lo, hi, _ := env.MinMaxXYs()
	lo = lo.Sub(geom.XY{X: margin, Y: margin})
	hi = hi.Add(geom.XY{X: margin, Y: margin})

	sizeX := hi.X - lo.X
	sizeY := hi.Y - lo.Y
	vp := Viewport{Width: width, Height: height, MinX: lo.X, MaxY: hi.Y, Scale: 1}
	if sizeX <= 0 || sizeY <= 0 || width <= 0 || height <= 0 {
		return vp
	}

	scaleX := width / sizeX
	scaleY := height / sizeY
	vp.Scale = math.Min(scaleX, scaleY)
	if scaleX > scaleY {
		vp.OffsetX = (width/vp.Scale - sizeX) / 2
	} else {
		vp.OffsetY = (height/vp.Scale - sizeY) / 2
	}
	return vp
}

// Project converts a world point to viewport pixels.
func (v Viewport) Project(p geo.Point) geo.Point {
	return geo.Point{
		X: (p.X - v.MinX + v.OffsetX) * v.Scale,
		Y: (v.MaxY - p.Y + v.OffsetY) * v.Scale,
	}
}
