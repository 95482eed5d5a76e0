package glacier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// Four 10x10 pixels, origin at (0, 20), y decreasing downwards.
var (
	shape = raster.Shape{Width: 2, Height: 2}
	gt    = raster.GeoTransform{0, 10, 0, 20, 0, -10}
)

// square covers the whole left column and a quarter of the top right pixel.
func square(t *testing.T) *Outline {
	t.Helper()
	o, err := NewOutline(orb.MultiPolygon{
		{{{0, 0}, {15, 0}, {15, 20}, {0, 20}, {0, 0}}},
	})
	require.NoError(t, err)
	return o
}

func TestFraction(t *testing.T) {
	m, err := NewMasker(square(t), DefaultThreshold, 10)
	require.NoError(t, err)

	f := m.Fraction(shape, gt)
	want := []float64{1, 0.5, 1, 0.5}
	for i, w := range want {
		v, ok := f.Value(i)
		require.True(t, ok)
		assert.InDelta(t, w, v, 1e-9, "pixel %d", i)
	}
}

func TestMaskThreshold(t *testing.T) {
	m, err := NewMasker(square(t), 0.6, 10)
	require.NoError(t, err)
	mask := m.Mask(shape, gt)
	assert.Equal(t, 2, mask.Count())
	assert.True(t, mask.At(0, 0))
	assert.False(t, mask.At(1, 0))

	m, err = NewMasker(square(t), 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Mask(shape, gt).Count(), "coverage equal to the threshold is kept")
}

func TestApplyIdempotent(t *testing.T) {
	m, err := NewMasker(square(t), 0.6, 10)
	require.NoError(t, err)
	b, err := raster.NewBand("albedo", shape, []float64{0.5, 0.6, 0.7, 0.8})
	require.NoError(t, err)

	once, err := m.Apply("albedo_masked", b, gt)
	require.NoError(t, err)
	twice, err := m.Apply("albedo_masked", once, gt)
	require.NoError(t, err)

	assert.Equal(t, once.Mask(), twice.Mask())
	assert.Equal(t, once.ValidValues(), twice.ValidValues())
	assert.Equal(t, []float64{0.5, 0.7}, once.ValidValues())
}

func TestPassthrough(t *testing.T) {
	m, err := NewMasker(nil, DefaultThreshold, DefaultSupersample)
	require.NoError(t, err)
	assert.True(t, m.Passthrough())
	assert.Equal(t, 4, m.Mask(shape, gt).Count())
	assert.True(t, m.Sufficient(shape, gt, 4))
	assert.False(t, m.Sufficient(shape, gt, 5))
}

func TestNewMaskerRejectsThreshold(t *testing.T) {
	for _, th := range []float64{0, -0.1, 1.5} {
		_, err := NewMasker(nil, th, 4)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	}
	_, err := NewMasker(nil, 0.5, 0)
	assert.Error(t, err)
}

func TestLoadOutline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.geojson")
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"a"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
		{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[[[[2,2],[3,2],[3,3],[2,3],[2,2]]],[[[4,4],[5,4],[5,5],[4,5],[4,4]]]]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[9,9]}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	o, err := LoadOutline(path)
	require.NoError(t, err)
	assert.Len(t, o.Polygons, 3)
	assert.Equal(t, orb.Point{5, 5}, o.Bound().Max)
}

func TestParseOutlineEmpty(t *testing.T) {
	_, err := ParseOutline([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.ErrorIs(t, err, ErrNoPolygons)
}

func TestTransform(t *testing.T) {
	o := square(t)
	shifted, err := o.Transform(func(xs, ys []float64) error {
		for i := range xs {
			xs[i] += 100
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, shifted.Bound().Min[0])
	assert.Equal(t, 0.0, o.Bound().Min[0], "source outline is unchanged")
}
