package ren

import (
	"fmt"
	"math"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// AnisotropyTerm is f̃ = c1 + c2·cos(θv) + c3·cos(φ) + θc·θv with θv and φ in radians.
func AnisotropyTerm(c Coefficients, thetaV, phiRel float64) float64 {
	return c.C1 + c.C2*math.Cos(thetaV) + c.C3*math.Cos(phiRel) + c.ThetaC*thetaV
}

// NarrowbandSet holds one narrow-band albedo per spectral band.
type NarrowbandSet struct {
	bands [modis.NumSpectral]raster.Band
	has   [modis.NumSpectral]bool
}

func (n NarrowbandSet) Get(s modis.Spectral) (raster.Band, bool) {
	return n.bands[s], n.has[s]
}

func (n *NarrowbandSet) put(s modis.Spectral, b raster.Band) {
	n.bands[s] = b
	n.has[s] = true
}

// Bands returns the present narrow-band albedos in catalogue order.
func (n NarrowbandSet) Bands() []raster.Band {
	var out []raster.Band
	for _, s := range modis.SpectralBands() {
		if n.has[s] {
			out = append(out, n.bands[s])
		}
	}
	return out
}

// AnisotropyCorrection converts the _topo reflectances of img into narrow-band
// albedo with the model's coefficients. Bands the model does not cover are
// left out of the result.
func AnisotropyCorrection(img raster.Image, m SurfaceModel) (NarrowbandSet, error) {
	geometry, err := selectBands(img, modis.SensorZenithCorrected, modis.SensorAzimuth, modis.SolarAzimuth)
	if err != nil {
		return NarrowbandSet{}, fmt.Errorf("%s anisotropy correction: %w", m.Name, err)
	}

	var set NarrowbandSet
	for _, s := range m.Bands() {
		topo, err := img.Select(s.Topo())
		if err != nil {
			return NarrowbandSet{}, fmt.Errorf("%s anisotropy correction: %w", m.Name, err)
		}
		c := m.BRDF(s)
		nb, err := raster.Zip(s.Narrowband(), append([]raster.Band{topo}, geometry...), func(v []float64) (float64, bool) {
			thetaV := rad(v[1])
			phiRel := rad((v[2] - v[3]) * modis.AngleScale)
			return v[0] - AnisotropyTerm(c, thetaV, phiRel), true
		})
		if err != nil {
			return NarrowbandSet{}, fmt.Errorf("%s anisotropy correction: %w", m.Name, err)
		}
		set.put(s, nb)
	}
	return set, nil
}
