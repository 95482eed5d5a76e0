package reference

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

var gt = raster.GeoTransform{0, 500, 0, 500, 0, -500}

func image(t *testing.T, bands map[string][]float64) raster.Image {
	t.Helper()
	var n int
	for _, v := range bands {
		n = len(v)
	}
	shape := raster.Shape{Width: n, Height: 1}
	img, err := raster.NewImage("ref", time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), shape, gt, "")
	require.NoError(t, err)
	for name, v := range bands {
		b, err := raster.NewBand(name, shape, v)
		require.NoError(t, err)
		img, err = img.WithBands(b)
		require.NoError(t, err)
	}
	return img
}

func values(t *testing.T, img raster.Image, name string) []float64 {
	t.Helper()
	b, err := img.Select(name)
	require.NoError(t, err)
	return b.ValidValues()
}

func TestMOD10A1AlbedoTile(t *testing.T) {
	m, err := NewMOD10A1(quality.MOD10Standard(), nil)
	require.NoError(t, err)

	out, err := m.Process(image(t, map[string][]float64{
		modis.NDSIBasicQA:         {0, 1, 2, 211},
		modis.NDSIAlgorithmFlags:  {0, 0, 0, 0},
		modis.SnowAlbedoDailyTile: {80, 65, 70, 90},
		modis.NDSISnowCover:       {10, 10, 10, 10},
	}))
	require.NoError(t, err)

	got := values(t, out, MOD10AlbedoMaskedBand)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.80, got[0], 1e-12)
	assert.InDelta(t, 0.65, got[1], 1e-12)
}

func TestMOD10A1FallsBackToSnowCover(t *testing.T) {
	m, err := NewMOD10A1(quality.MOD10Relaxed(), nil)
	require.NoError(t, err)

	out, err := m.Process(image(t, map[string][]float64{
		modis.NDSIBasicQA:        {0, 2},
		modis.NDSIAlgorithmFlags: {float64(quality.ProbablyCloudy), 0},
		modis.NDSISnowCover:      {55, 120},
	}))
	require.NoError(t, err)

	got := values(t, out, MOD10AlbedoBand)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.55, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12, "snow cover is clamped to 100")
}

func TestMOD10A1MissingQA(t *testing.T) {
	m, err := NewMOD10A1(quality.MOD10Standard(), nil)
	require.NoError(t, err)

	_, err = m.Process(image(t, map[string][]float64{modis.SnowAlbedoDailyTile: {50}}))
	assert.True(t, errors.Is(err, raster.ErrMissingBand))
}

func TestMCD43A3(t *testing.T) {
	m, err := NewMCD43A3(quality.MCD43Standard(), nil)
	require.NoError(t, err)

	out, err := m.Process(image(t, map[string][]float64{
		modis.AlbedoBSAShortwave:   {650, 700, 800, 32767},
		modis.AlbedoWSAShortwave:   {660, 710, 810, 32767},
		modis.MandatoryQAShortwave: {0, 1, 2, 0},
		modis.MandatoryQAVisible:   {0, 3, 0, 0},
		modis.MandatoryQANIR:       {1, 0, 0, 0},
	}))
	require.NoError(t, err)

	got := values(t, out, MCD43AlbedoMaskedBand)
	require.Len(t, got, 2, "shortwave code 2 fails, fill value is masked")
	assert.InDelta(t, 0.65, got[0], 1e-12)
	assert.InDelta(t, 0.70, got[1], 1e-12)

	wsa := values(t, out, MCD43WhiteSkyBand)
	assert.InDelta(t, 0.66, wsa[0], 1e-12)
}

func TestMCD43A3GlacierMask(t *testing.T) {
	outline, err := glacier.NewOutline(orb.MultiPolygon{{{{0, 0}, {500, 0}, {500, 500}, {0, 500}, {0, 0}}}})
	require.NoError(t, err)
	g, err := glacier.NewMasker(outline, glacier.DefaultThreshold, 4)
	require.NoError(t, err)
	m, err := NewMCD43A3(quality.MCD43Relaxed(), g)
	require.NoError(t, err)

	out, err := m.Process(image(t, map[string][]float64{
		modis.AlbedoBSAShortwave:   {500, 600},
		modis.MandatoryQAShortwave: {0, 0},
		modis.MandatoryQAVisible:   {3, 3},
		modis.MandatoryQANIR:       {3, 3},
	}))
	require.NoError(t, err)

	assert.Len(t, values(t, out, MCD43AlbedoBand), 2)
	assert.Equal(t, []float64{0.5}, values(t, out, MCD43AlbedoMaskedBand))
}

func TestConstructorsCheckProduct(t *testing.T) {
	_, err := NewMOD10A1(quality.MCD43Standard(), nil)
	assert.ErrorIs(t, err, quality.ErrInvalidQualityPolicy)
	_, err = NewMCD43A3(nil, nil)
	assert.ErrorIs(t, err, quality.ErrInvalidQualityPolicy)
}
