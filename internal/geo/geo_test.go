package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestAzimToCartesian_CardinalDirections(t *testing.T) {
	tests := []struct {
		name  string
		azim  float64
		wantX float64
		wantY float64
	}{
		{"north", 0, 0, 100},
		{"east", 90, 100, 0},
		{"south", 180, 0, -100},
		{"west", 270, -100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := AzimToCartesian(100, tt.azim, Point{})
			assert.InDelta(t, tt.wantX, p.X, eps)
			assert.InDelta(t, tt.wantY, p.Y, eps)
		})
	}
}

func TestAzimToCartesian_WithOrigin(t *testing.T) {
	p := AzimToCartesian(50, 90, Point{X: 10, Y: -20})

	assert.InDelta(t, 60, p.X, eps)
	assert.InDelta(t, -20, p.Y, eps)
}

func TestAzimToCartesian_UnnormalizedAngle(t *testing.T) {
	a := AzimToCartesian(100, -90, Point{})
	b := AzimToCartesian(100, 270, Point{})

	assert.InDelta(t, b.X, a.X, eps)
	assert.InDelta(t, b.Y, a.Y, eps)
}

func TestCartesianToAzim_RoundTrip(t *testing.T) {
	for _, dist := range []float64{0.5, 1, 45, 100, 999.9} {
		for azim := 0.0; azim < 360; azim += 7.5 {
			p := AzimToCartesian(dist, azim, Point{})
			polar := CartesianToAzim(p, Point{})

			assert.InDelta(t, dist, polar.Dist, 1e-6, "dist=%v azim=%v", dist, azim)
			diff := math.Abs(polar.Azim - azim)
			if diff > 180 {
				diff = 360 - diff
			}
			assert.InDelta(t, 0, diff, 1e-6, "dist=%v azim=%v got=%v", dist, azim, polar.Azim)
		}
	}
}

func TestCartesianToAzim_ZeroDistance(t *testing.T) {
	polar := CartesianToAzim(Point{X: 5, Y: 5}, Point{X: 5, Y: 5})

	assert.Equal(t, 0.0, polar.Dist)
	assert.Equal(t, 0.0, polar.Azim)
}

func TestCartesianToAzim_Quadrants(t *testing.T) {
	tests := []struct {
		name string
		dst  Point
		want float64
	}{
		{"due north", Point{X: 0, Y: 10}, 0},
		{"north east", Point{X: 10, Y: 10}, 45},
		{"due east", Point{X: 10, Y: 0}, 90},
		{"south east", Point{X: 10, Y: -10}, 135},
		{"due south", Point{X: 0, Y: -10}, 180},
		{"south west", Point{X: -10, Y: -10}, 225},
		{"due west", Point{X: -10, Y: 0}, 270},
		{"north west", Point{X: -10, Y: 10}, 315},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			polar := CartesianToAzim(tt.dst, Point{})
			assert.InDelta(t, tt.want, polar.Azim, eps)
		})
	}
}

func TestCartesianToAzim_RelativeToSource(t *testing.T) {
	polar := CartesianToAzim(Point{X: 3, Y: 4}, Point{X: 0, Y: 0})
	assert.InDelta(t, 5, polar.Dist, eps)

	polar = CartesianToAzim(Point{X: 0, Y: 0}, Point{X: 3, Y: 4})
	assert.InDelta(t, 5, polar.Dist, eps)
	assert.InDelta(t, 180+radToDeg(math.Asin(0.6)), polar.Azim, eps)
}

func TestNormalizeAzimuth(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{-90, 270},
		{450, 90},
		{-720, 0},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, NormalizeAzimuth(tt.input), eps, "input %v", tt.input)
	}
}

func TestReverseAzimuth(t *testing.T) {
	assert.Equal(t, 180.0, ReverseAzimuth(0))
	assert.Equal(t, 90.0, ReverseAzimuth(270))
	assert.Equal(t, 0.0, ReverseAzimuth(180))
}

func TestTruncate1(t *testing.T) {
	assert.Equal(t, 100.0, Truncate1(100.0))
	assert.Equal(t, 12.3, Truncate1(12.39))
	assert.Equal(t, 359.9, Truncate1(359.99))
	assert.Equal(t, -0.1, Truncate1(-0.01))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.235001))
	assert.Equal(t, -2.5, Round2(-2.5))
}

func TestPolarFromString_Valid(t *testing.T) {
	polar, err := PolarFromString("120.5, 45")

	require.NoError(t, err)
	assert.Equal(t, 120.5, polar.Dist)
	assert.Equal(t, 45.0, polar.Azim)
}

func TestPolarFromString_NormalizesAzimuth(t *testing.T) {
	polar, err := PolarFromString("10,-30")

	require.NoError(t, err)
	assert.Equal(t, 330.0, polar.Azim)
}

func TestPolarFromString_Invalid(t *testing.T) {
	for _, input := range []string{"", "10", "10,20,30", "abc,20", "10,abc", "-5,20", "NaN,20", "10,inf", "Infinity,0"} {
		_, err := PolarFromString(input)
		assert.True(t, errors.Is(err, ErrInvalidPolar), "input %q", input)
	}
}

func TestPoint_Arithmetic(t *testing.T) {
	a := Point{X: 1, Y: 2}
	b := Point{X: 4, Y: 6}

	assert.Equal(t, Point{X: 5, Y: 8}, a.Add(b))
	assert.Equal(t, Point{X: 3, Y: 4}, b.Sub(a))
	assert.InDelta(t, 5, a.DistanceTo(b), eps)
}
