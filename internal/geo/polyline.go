package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"
)

// Path is an ordered list of points, e.g. the anchor chain spotter -> references -> gun.
type Path []Point

// LineString converts the path into a simplefeatures LineString.
// Paths with fewer than 2 points produce an empty LineString. A path whose points
// all coincide, or that holds a non-finite coordinate, is rejected.
func (p Path) LineString() (geom.LineString, error) {
	if len(p) < 2 {
		return geom.LineString{}, nil
	}
	flatCoords := make([]float64, 0, len(p)*2)
	for _, pt := range p {
		flatCoords = append(flatCoords, pt.X, pt.Y)
	}
	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
}

// Length returns the summed length of all path legs, 0 for a path LineString rejects.
func (p Path) Length() float64 {
	ls, err := p.LineString()
	if err != nil {
		return 0
	}
	return ls.Length()
}
