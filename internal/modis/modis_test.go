package modis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

func TestSpectralNames(t *testing.T) {
	assert.Equal(t, "sur_refl_b01", B1.Reflectance())
	assert.Equal(t, "sur_refl_b07_topo", B7.Topo())
	assert.Equal(t, "narrowband_b4", B4.Narrowband())
	assert.Len(t, SpectralBands(), 6)
}

func TestInputFallback(t *testing.T) {
	shape := raster.Shape{Width: 2, Height: 1}
	raw, err := raster.NewBand(B4.Reflectance(), shape, []float64{5000, 1000})
	require.NoError(t, err)
	img, err := raster.NewImage("t", time.Time{}, shape, raster.GeoTransform{}, "", raw)
	require.NoError(t, err)

	green, err := Green.Resolve(img)
	require.NoError(t, err)
	assert.Equal(t, B4.Topo(), green.Name)
	v, _ := green.Value(0)
	assert.InDelta(t, 0.5, v, 1e-12)

	topo, err := raster.NewBand(B4.Topo(), shape, []float64{0.25, 0.25})
	require.NoError(t, err)
	img, err = img.WithBands(topo)
	require.NoError(t, err)

	green, err = Green.Resolve(img)
	require.NoError(t, err)
	v, _ = green.Value(0)
	assert.Equal(t, 0.25, v)
}

func TestSnowAlbedoFallbackClamps(t *testing.T) {
	shape := raster.Shape{Width: 3, Height: 1}
	cover, err := raster.NewBand(NDSISnowCover, shape, []float64{-10, 55, 250})
	require.NoError(t, err)
	img, err := raster.NewImage("t", time.Time{}, shape, raster.GeoTransform{}, "", cover)
	require.NoError(t, err)

	b, err := SnowAlbedo.Resolve(img)
	require.NoError(t, err)
	want := []float64{0, 55, 100}
	for i, w := range want {
		v, ok := b.Value(i)
		require.True(t, ok)
		assert.InDelta(t, w, v, 1e-12)
	}
}

func TestSchemaCheck(t *testing.T) {
	shape := raster.Shape{Width: 1, Height: 1}
	qa, err := raster.NewBand(NDSIBasicQA, shape, []float64{0})
	require.NoError(t, err)
	img, err := raster.NewImage("t", time.Time{}, shape, raster.GeoTransform{}, "", qa)
	require.NoError(t, err)

	err = MOD10A1Schema().Check(img)
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrMissingBand))
	assert.Contains(t, err.Error(), NDSIAlgorithmFlags)
	assert.Contains(t, err.Error(), SnowAlbedoDailyTile)
}

func TestBandsCoverSchemas(t *testing.T) {
	for _, p := range []Product{MOD09GA, MOD10A1, MCD43A3} {
		bands := Bands(p)
		for _, name := range SchemaFor(p).Required {
			assert.Contains(t, bands, name, "%s", p)
		}
	}
	_, err := ParseProduct("MOD09A1")
	assert.Error(t, err)
}
