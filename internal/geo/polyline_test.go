package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_Length(t *testing.T) {
	path := Path{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 10}}

	assert.InDelta(t, 11, path.Length(), 1e-9)
}

func TestPath_DegenerateLength(t *testing.T) {
	tests := []struct {
		name string
		path Path
	}{
		{"empty", Path{}},
		{"single point", Path{{X: 1, Y: 1}}},
		{"coincident points", Path{{X: 2, Y: 2}, {X: 2, Y: 2}}},
		{"non-finite", Path{{}, {X: math.NaN(), Y: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, tt.path.Length())
		})
	}
}

func TestPath_LineString(t *testing.T) {
	ls, err := Path{{X: 0, Y: 0}, {X: 10, Y: 0}}.LineString()
	require.NoError(t, err)
	assert.Equal(t, 2, ls.Coordinates().Length())

	_, err = Path{{X: 1, Y: 1}, {X: 1, Y: 1}}.LineString()
	assert.Error(t, err)
}
