package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

func plane(t *testing.T, fn func(x, y int) float64) raster.Band {
	t.Helper()
	shape := raster.Shape{Width: 3, Height: 3}
	v := make([]float64, shape.Len())
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			v[y*3+x] = fn(x, y)
		}
	}
	b, err := raster.NewBand("dem", shape, v)
	require.NoError(t, err)
	return b
}

func TestDeriveFlat(t *testing.T) {
	tr, err := Derive(plane(t, func(x, y int) float64 { return 1200 }), 30, 30)
	require.NoError(t, err)

	s, ok := tr.Slope.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, 0.0, s)
}

func TestDeriveEastRising(t *testing.T) {
	// 30 m cells rising 30 m per cell to the east: 45 degrees facing west.
	tr, err := Derive(plane(t, func(x, y int) float64 { return float64(x) * 30 }), 30, 30)
	require.NoError(t, err)

	s, _ := tr.Slope.At(1, 1)
	a, _ := tr.Aspect.At(1, 1)
	assert.InDelta(t, 45, s, 1e-9)
	assert.InDelta(t, 270, a, 1e-9)
}

func TestDeriveSouthRising(t *testing.T) {
	tr, err := Derive(plane(t, func(x, y int) float64 { return float64(y) * 10 }), 30, 30)
	require.NoError(t, err)

	a, _ := tr.Aspect.At(1, 1)
	assert.InDelta(t, 0, a, 1e-9, "downslope faces north")
}

func TestDeriveMasksHoles(t *testing.T) {
	shape := raster.Shape{Width: 3, Height: 3}
	valid := []bool{true, true, true, true, true, true, true, true, false}
	dem, err := raster.NewMaskedBand("dem", shape, make([]float64, 9), valid)
	require.NoError(t, err)

	tr, err := Derive(dem, 30, 30)
	require.NoError(t, err)
	_, ok := tr.Slope.At(1, 1)
	assert.False(t, ok)
	_, ok = tr.Slope.At(0, 0)
	assert.True(t, ok)
}

func TestDeriveRejectsCellSize(t *testing.T) {
	_, err := Derive(plane(t, func(x, y int) float64 { return 0 }), 0, 30)
	assert.Error(t, err)
}
