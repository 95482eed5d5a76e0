package ren

import (
	"fmt"
	"math"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
	"github.com/glacier-albedo/modis-albedo-cli/internal/terrain"
)

const (
	CorrectionFactorBand = "topo_correction_factor"

	// DefaultMinCosine masks pixels whose flat or slope solar cosine falls
	// below it (sun within about 0.6 degrees of the horizon).
	DefaultMinCosine = 0.01
)

type TopoOptions struct {
	MinCosine float64 `yaml:"min_cosine"`
}

func DefaultTopoOptions() TopoOptions {
	return TopoOptions{MinCosine: DefaultMinCosine}
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

// SlopeCosine is the cosine of a zenith angle measured against the slope
// normal. All angles are in radians.
func SlopeCosine(slope, aspect, zenith, azimuth float64) float64 {
	return math.Cos(slope)*math.Cos(zenith) + math.Sin(slope)*math.Sin(zenith)*math.Cos(aspect-azimuth)
}

// CorrectionFactor is cos(θ's)/cos(θs). ok is false when either cosine is
// below minCos.
func CorrectionFactor(slope, aspect, solarZenith, solarAzimuth, minCos float64) (float64, bool) {
	flat := math.Cos(solarZenith)
	tilted := SlopeCosine(slope, aspect, solarZenith, solarAzimuth)
	if flat < minCos || tilted < minCos {
		return 0, false
	}
	return tilted / flat, true
}

func correctedZenith(cos float64) float64 {
	return deg(math.Acos(min(max(cos, -1), 1)))
}

// TopographicCorrection adds the _topo reflectance bands and the corrected
// sensor and solar zenith angles (degrees) to img.
func TopographicCorrection(img raster.Image, t terrain.Terrain, opts TopoOptions) (raster.Image, error) {
	angles, err := selectBands(img, modis.SolarZenith, modis.SolarAzimuth, modis.SensorZenith, modis.SensorAzimuth)
	if err != nil {
		return raster.Image{}, fmt.Errorf("topographic correction: %w", err)
	}
	// slope, aspect, solar zenith, solar azimuth, sensor zenith, sensor azimuth
	geometry := append([]raster.Band{t.Slope, t.Aspect}, angles[0], angles[1], angles[2], angles[3])
	descale := func(v []float64) (slope, aspect, sz, sa, vz, va float64) {
		return rad(v[0]), rad(v[1]),
			rad(v[2] * modis.AngleScale), rad(v[3] * modis.AngleScale),
			rad(v[4] * modis.AngleScale), rad(v[5] * modis.AngleScale)
	}

	factor, err := raster.Zip(CorrectionFactorBand, geometry, func(v []float64) (float64, bool) {
		slope, aspect, sz, sa, _, _ := descale(v)
		return CorrectionFactor(slope, aspect, sz, sa, opts.MinCosine)
	})
	if err != nil {
		return raster.Image{}, fmt.Errorf("topographic correction: %w", err)
	}
	sensor, err := raster.Zip(modis.SensorZenithCorrected, geometry, func(v []float64) (float64, bool) {
		slope, aspect, _, _, vz, va := descale(v)
		return correctedZenith(SlopeCosine(slope, aspect, vz, va)), true
	})
	if err != nil {
		return raster.Image{}, fmt.Errorf("topographic correction: %w", err)
	}
	solar, err := raster.Zip(modis.SolarZenithCorrected, geometry, func(v []float64) (float64, bool) {
		slope, aspect, sz, sa, _, _ := descale(v)
		return correctedZenith(SlopeCosine(slope, aspect, sz, sa)), true
	})
	if err != nil {
		return raster.Image{}, fmt.Errorf("topographic correction: %w", err)
	}

	out := []raster.Band{factor, sensor, solar}
	for _, s := range modis.SpectralBands() {
		refl, err := img.Select(s.Reflectance())
		if err != nil {
			return raster.Image{}, fmt.Errorf("topographic correction: %w", err)
		}
		topo, err := raster.Zip(s.Topo(), []raster.Band{refl, factor}, func(v []float64) (float64, bool) {
			return v[0] * modis.ReflectanceScale * v[1], true
		})
		if err != nil {
			return raster.Image{}, fmt.Errorf("topographic correction: %w", err)
		}
		out = append(out, topo)
	}
	return img.WithBands(out...)
}

func selectBands(img raster.Image, names ...string) ([]raster.Band, error) {
	bands := make([]raster.Band, len(names))
	for i, name := range names {
		b, err := img.Select(name)
		if err != nil {
			return nil, err
		}
		bands[i] = b
	}
	return bands, nil
}
