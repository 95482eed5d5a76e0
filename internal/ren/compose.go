package ren

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

const (
	IceAlbedoBand       = "ice_albedo"
	SnowAlbedoBand      = "snow_albedo"
	BroadbandBand       = "broadband_albedo_ren"
	BroadbandMaskedBand = "broadband_albedo_ren_masked"
)

// MergeNarrowband takes the snow narrow-band albedo where snowMask is set and
// the ice value elsewhere. Bands the snow model lacks always come from ice.
func MergeNarrowband(ice, snow NarrowbandSet, snowMask raster.Band) (NarrowbandSet, error) {
	var merged NarrowbandSet
	for _, s := range modis.SpectralBands() {
		iceBand, ok := ice.Get(s)
		if !ok {
			return NarrowbandSet{}, fmt.Errorf("merge narrowband: ice albedo for %s: %w", s, raster.ErrMissingBand)
		}
		snowBand, ok := snow.Get(s)
		if !ok {
			merged.put(s, iceBand)
			continue
		}
		b, err := raster.Where(iceBand, snowMask, snowBand)
		if err != nil {
			return NarrowbandSet{}, fmt.Errorf("merge narrowband %s: %w", s, err)
		}
		merged.put(s, b)
	}
	return merged, nil
}

// Broadband is the model's linear combination of narrow-band albedos.
func Broadband(name string, nb NarrowbandSet, m SurfaceModel) (raster.Band, error) {
	var (
		inputs  []raster.Band
		weights []float64
	)
	for _, s := range m.Bands() {
		b, ok := nb.Get(s)
		if !ok {
			return raster.Band{}, fmt.Errorf("%s broadband: narrowband %s: %w", m.Name, s, raster.ErrMissingBand)
		}
		inputs = append(inputs, b)
		weights = append(weights, m.Weight(s))
	}
	return raster.Zip(name, inputs, func(v []float64) (float64, bool) {
		sum := m.Constant
		for i, w := range weights {
			sum += w * v[i]
		}
		return sum, true
	})
}

// ComposeAlbedo merges the two narrow-band stacks, computes both broadband
// albedos and selects the snow value on snow pixels. The ice albedo is the
// base, so a pixel without valid ice albedo never gets a value.
func ComposeAlbedo(img raster.Image, ice, snow NarrowbandSet) (raster.Image, error) {
	snowMask, err := img.Select(SnowMaskBand)
	if err != nil {
		return raster.Image{}, fmt.Errorf("compose albedo: %w", err)
	}
	merged, err := MergeNarrowband(ice, snow, snowMask)
	if err != nil {
		return raster.Image{}, err
	}

	alphaIce, err := Broadband(IceAlbedoBand, merged, Ice())
	if err != nil {
		return raster.Image{}, err
	}
	alphaSnow, err := Broadband(SnowAlbedoBand, merged, Snow())
	if err != nil {
		return raster.Image{}, err
	}
	broadband, err := raster.Where(alphaIce, snowMask, alphaSnow)
	if err != nil {
		return raster.Image{}, fmt.Errorf("compose albedo: %w", err)
	}

	bands := append(merged.Bands(), alphaIce, alphaSnow, broadband.Rename(BroadbandBand))
	return img.WithBands(bands...)
}
