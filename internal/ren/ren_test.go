package ren

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
	"github.com/glacier-albedo/modis-albedo-cli/internal/terrain"
)

// clearSnowQA is a clear, shadow-free, high snow/ice confidence state_1km value.
const clearSnowQA = 3 << 12

type scene struct {
	qa           []float64
	solarZenith  float64 // degrees
	solarAzimuth float64
	sensorZenith float64
	sensorAzim   float64
	reflectance  [modis.NumSpectral]float64 // descaled
}

func (s scene) image(t *testing.T) raster.Image {
	t.Helper()
	n := len(s.qa)
	shape := raster.Shape{Width: n, Height: 1}
	fill := func(name string, v float64) raster.Band {
		return raster.Constant(name, shape, v)
	}
	qa, err := raster.NewBand(modis.StateQA, shape, s.qa)
	require.NoError(t, err)

	bands := []raster.Band{
		qa,
		fill(modis.SolarZenith, s.solarZenith/modis.AngleScale),
		fill(modis.SolarAzimuth, s.solarAzimuth/modis.AngleScale),
		fill(modis.SensorZenith, s.sensorZenith/modis.AngleScale),
		fill(modis.SensorAzimuth, s.sensorAzim/modis.AngleScale),
	}
	for _, sp := range modis.SpectralBands() {
		bands = append(bands, fill(sp.Reflectance(), math.Round(s.reflectance[sp]/modis.ReflectanceScale)))
	}
	img, err := raster.NewImage("MOD09GA_2023_07_15", time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC), shape,
		raster.GeoTransform{0, 500, 0, 0, 0, -500}, "", bands...)
	require.NoError(t, err)
	return img
}

func snowScene(n int) scene {
	qa := make([]float64, n)
	for i := range qa {
		qa[i] = clearSnowQA
	}
	return scene{
		qa:           qa,
		solarZenith:  40,
		solarAzimuth: 150,
		sensorZenith: 10,
		sensorAzim:   100,
		// green 0.8, swir 0.1: NDSI ~0.78
		reflectance: [modis.NumSpectral]float64{0.85, 0.75, 0.9, 0.8, 0.3, 0.1},
	}
}

func TestCoefficientTables(t *testing.T) {
	assert.False(t, Snow().Covers(modis.B4))
	assert.Len(t, Snow().Bands(), 5)
	assert.Len(t, Ice().Bands(), 6)
	for _, s := range modis.SpectralBands() {
		assert.True(t, Ice().Covers(s), s.String())
	}
}

func TestNDSI(t *testing.T) {
	v, ok := NDSI(0.5, 0.1)
	require.True(t, ok)
	assert.InDelta(t, 0.667, v, 1e-3)
	assert.True(t, IsSnow(v))

	v, ok = NDSI(0.1, 0.5)
	require.True(t, ok)
	assert.InDelta(t, -0.667, v, 1e-3)
	assert.False(t, IsSnow(v))

	_, ok = NDSI(0, 0)
	assert.False(t, ok)

	assert.False(t, IsSnow(NDSIThreshold), "threshold itself is not snow")
}

func TestClassifySurfaceFallsBackToRawBands(t *testing.T) {
	img := snowScene(1).image(t)

	classified, err := ClassifySurface(img)
	require.NoError(t, err)

	ndsi, err := classified.Select(NDSIBand)
	require.NoError(t, err)
	v, ok := ndsi.Value(0)
	require.True(t, ok)
	assert.InDelta(t, (0.8-0.1)/(0.8+0.1), v, 1e-9)

	mask, err := classified.Select(SnowMaskBand)
	require.NoError(t, err)
	m, _ := mask.Value(0)
	assert.Equal(t, 1.0, m)
}

func TestClassifySurfaceMasksZeroSum(t *testing.T) {
	s := snowScene(1)
	s.reflectance[modis.B4] = 0
	s.reflectance[modis.B7] = 0

	classified, err := ClassifySurface(s.image(t))
	require.NoError(t, err)
	ndsi, _ := classified.Select(NDSIBand)
	snow, _ := classified.Select(SnowMaskBand)
	assert.Equal(t, 0, ndsi.ValidCount())
	assert.Equal(t, 0, snow.ValidCount())
}

func TestFlatTerrainKeepsReflectance(t *testing.T) {
	s := snowScene(1)
	s.reflectance[modis.B1] = 0.30
	img := s.image(t)

	out, err := TopographicCorrection(img, terrain.Flat(img.Shape), DefaultTopoOptions())
	require.NoError(t, err)

	topo, err := out.Select(modis.B1.Topo())
	require.NoError(t, err)
	v, ok := topo.Value(0)
	require.True(t, ok)
	raw, _ := img.Select(modis.B1.Reflectance())
	r, _ := raw.Value(0)
	assert.Equal(t, r*modis.ReflectanceScale, v)

	sensor, _ := out.Select(modis.SensorZenithCorrected)
	z, _ := sensor.Value(0)
	assert.InDelta(t, 10, z, 1e-9)
}

func TestTopographicCorrectionSlope(t *testing.T) {
	img := snowScene(1).image(t)
	slope := raster.Constant(terrain.SlopeBand, img.Shape, 20)
	aspect := raster.Constant(terrain.AspectBand, img.Shape, 150)
	tr, err := terrain.New(slope, aspect)
	require.NoError(t, err)

	out, err := TopographicCorrection(img, tr, DefaultTopoOptions())
	require.NoError(t, err)

	// A slope facing the sun: the corrected solar zenith is 40 - 20.
	solar, _ := out.Select(modis.SolarZenithCorrected)
	z, _ := solar.Value(0)
	assert.InDelta(t, 20, z, 1e-9)

	factor, _ := out.Select(CorrectionFactorBand)
	f, _ := factor.Value(0)
	assert.InDelta(t, math.Cos(rad(20))/math.Cos(rad(40)), f, 1e-12)
}

func TestTopographicCorrectionMasksGrazingSun(t *testing.T) {
	s := snowScene(2)
	s.solarZenith = 89.9
	img := s.image(t)

	out, err := TopographicCorrection(img, terrain.Flat(img.Shape), DefaultTopoOptions())
	require.NoError(t, err)

	for _, sp := range modis.SpectralBands() {
		b, err := out.Select(sp.Topo())
		require.NoError(t, err)
		assert.Equal(t, 0, b.ValidCount(), sp.String())
	}
}

func TestAnisotropyTermAtNadir(t *testing.T) {
	c := Snow().BRDF(modis.B1)
	assert.Equal(t, Coefficients{0.00083, 0.00384, 0.00452, 0.34527}, c)
	assert.Equal(t, c.C1+c.C2+c.C3, AnisotropyTerm(c, 0, 0))
	assert.InDelta(t, c.C1+c.C2*math.Cos(1)+c.C3*math.Cos(2)+c.ThetaC, AnisotropyTerm(c, 1, 2), 1e-15)
}

func TestAnisotropyCorrection(t *testing.T) {
	s := snowScene(1)
	s.sensorZenith = 0
	s.sensorAzim = s.solarAzimuth
	s.reflectance[modis.B1] = 0.30
	img := s.image(t)

	topo, err := TopographicCorrection(img, terrain.Flat(img.Shape), DefaultTopoOptions())
	require.NoError(t, err)

	nb, err := AnisotropyCorrection(topo, Snow())
	require.NoError(t, err)
	_, ok := nb.Get(modis.B4)
	assert.False(t, ok, "snow model has no band 4")

	b1, ok := nb.Get(modis.B1)
	require.True(t, ok)
	assert.Equal(t, modis.B1.Narrowband(), b1.Name)
	v, _ := b1.Value(0)
	c := Snow().BRDF(modis.B1)
	assert.InDelta(t, 0.30-(c.C1+c.C2+c.C3), v, 1e-12)

	nb, err = AnisotropyCorrection(topo, Ice())
	require.NoError(t, err)
	assert.Len(t, nb.Bands(), 6)
}

func constantSet(t *testing.T, shape raster.Shape, m SurfaceModel, values [modis.NumSpectral]float64) NarrowbandSet {
	t.Helper()
	var set NarrowbandSet
	for _, s := range m.Bands() {
		set.put(s, raster.Constant(s.Narrowband(), shape, values[s]))
	}
	return set
}

func composition(m SurfaceModel, values [modis.NumSpectral]float64) float64 {
	sum := m.Constant
	for _, s := range m.Bands() {
		sum += m.Weight(s) * values[s]
	}
	return sum
}

func TestComposeAlbedoSelectsBySurface(t *testing.T) {
	shape := raster.Shape{Width: 2, Height: 1}
	snowMask, err := raster.NewBand(SnowMaskBand, shape, []float64{1, 0})
	require.NoError(t, err)
	img, err := raster.NewImage("img", time.Time{}, shape, raster.GeoTransform{}, "", snowMask)
	require.NoError(t, err)

	iceValues := [modis.NumSpectral]float64{0.30, 0.28, 0.32, 0.31, 0.2, 0.1}
	snowValues := [modis.NumSpectral]float64{0.80, 0.75, 0.85, 0, 0.4, 0.2}
	ice := constantSet(t, shape, Ice(), iceValues)
	snow := constantSet(t, shape, Snow(), snowValues)

	out, err := ComposeAlbedo(img, ice, snow)
	require.NoError(t, err)

	bb, err := out.Select(BroadbandBand)
	require.NoError(t, err)

	onSnow, ok := bb.Value(0)
	require.True(t, ok)
	assert.InDelta(t, composition(Snow(), snowValues), onSnow, 1e-12)

	onIce, ok := bb.Value(1)
	require.True(t, ok)
	assert.InDelta(t, composition(Ice(), iceValues), onIce, 1e-12)

	b4, err := out.Select(modis.B4.Narrowband())
	require.NoError(t, err)
	v, _ := b4.Value(0)
	assert.Equal(t, iceValues[modis.B4], v, "band 4 always comes from ice")

	b1, _ := out.Select(modis.B1.Narrowband())
	v, _ = b1.Value(0)
	assert.Equal(t, snowValues[modis.B1], v)

	// The ice albedo on the snow pixel is computed from the merged stack.
	merged := snowValues
	merged[modis.B4] = iceValues[modis.B4]
	iceBand, _ := out.Select(IceAlbedoBand)
	v, _ = iceBand.Value(0)
	assert.InDelta(t, composition(Ice(), merged), v, 1e-12)
}

func TestComposeAlbedoKeepsIceMask(t *testing.T) {
	shape := raster.Shape{Width: 1, Height: 1}
	snowMask := raster.Constant(SnowMaskBand, shape, 1)
	img, err := raster.NewImage("img", time.Time{}, shape, raster.GeoTransform{}, "", snowMask)
	require.NoError(t, err)

	ice := constantSet(t, shape, Ice(), [modis.NumSpectral]float64{0.3, 0.3, 0.3, 0.3, 0.3, 0.3})
	b4, _ := ice.Get(modis.B4)
	masked, err := b4.UpdateMask(raster.NewMask(shape, false))
	require.NoError(t, err)
	ice.put(modis.B4, masked)
	snow := constantSet(t, shape, Snow(), [modis.NumSpectral]float64{0.8, 0.8, 0.8, 0, 0.8, 0.8})

	out, err := ComposeAlbedo(img, ice, snow)
	require.NoError(t, err)
	bb, _ := out.Select(BroadbandBand)
	assert.Equal(t, 0, bb.ValidCount(), "no value where the ice albedo is invalid")
}

func TestPipelineProcess(t *testing.T) {
	p, err := NewPipeline(quality.MOD09Standard(), nil, nil)
	require.NoError(t, err)

	s := snowScene(3)
	s.qa[1] = clearSnowQA | 1 // cloudy
	out, err := p.Process(s.image(t))
	require.NoError(t, err)

	for _, name := range []string{NDSIBand, SnowMaskBand, IceAlbedoBand, SnowAlbedoBand, BroadbandBand, BroadbandMaskedBand,
		glacier.FractionBand, modis.SensorZenithCorrected, modis.SolarZenithCorrected, modis.B4.Topo(), modis.B4.Narrowband()} {
		assert.True(t, out.Has(name), name)
	}

	bb, err := out.Select(BroadbandMaskedBand)
	require.NoError(t, err)
	assert.Equal(t, 2, bb.ValidCount())
	_, ok := bb.Value(1)
	assert.False(t, ok, "cloudy pixel is masked")

	v, _ := bb.Value(0)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 1.2)
}

func TestPipelineEmptyQualityMask(t *testing.T) {
	p, err := NewPipeline(quality.MOD09Standard(), nil, nil)
	require.NoError(t, err)

	s := snowScene(4)
	for i := range s.qa {
		s.qa[i] = 1 // cloudy, no snow
	}
	out, err := p.Process(s.image(t))
	require.NoError(t, err)

	bb, err := out.Select(BroadbandMaskedBand)
	require.NoError(t, err)
	assert.Equal(t, 0, bb.ValidCount())
}

func TestPipelineMissingBand(t *testing.T) {
	p, err := NewPipeline(quality.MOD09Relaxed(), nil, nil)
	require.NoError(t, err)

	img, err := raster.NewImage("broken", time.Time{}, raster.Shape{Width: 1, Height: 1}, raster.GeoTransform{}, "")
	require.NoError(t, err)

	_, err = p.Process(img)
	assert.True(t, errors.Is(err, raster.ErrMissingBand))
}

func TestNewPipelineRejectsForeignPolicy(t *testing.T) {
	_, err := NewPipeline(quality.MOD10Standard(), nil, nil)
	assert.ErrorIs(t, err, quality.ErrInvalidQualityPolicy)
}
