// Package ren retrieves broadband glacier albedo from MOD09GA reflectance
// following Ren et al. (2021, 2023): topographic correction, NDSI snow/ice
// classification, P1/P2 anisotropy correction and narrow-to-broadband
// conversion.
package ren

import "github.com/glacier-albedo/modis-albedo-cli/internal/modis"

// Coefficients of the anisotropy term for one spectral band.
type Coefficients struct {
	C1, C2, C3, ThetaC float64
}

// SurfaceModel holds the BRDF coefficients and broadband weights of one
// surface class, indexed by spectral band. A band without coefficients is not
// part of the model.
type SurfaceModel struct {
	Name     string
	brdf     [modis.NumSpectral]Coefficients
	weights  [modis.NumSpectral]float64
	covers   [modis.NumSpectral]bool
	Constant float64
}

// Snow is the P1 model. It has no band 4 entry.
func Snow() SurfaceModel {
	m := SurfaceModel{Name: "snow", Constant: -0.0093}
	m.set(modis.B1, Coefficients{0.00083, 0.00384, 0.00452, 0.34527}, 0.1574)
	m.set(modis.B2, Coefficients{0.00123, 0.00459, 0.00521, 0.34834}, 0.2789)
	m.set(modis.B3, Coefficients{0.00000, 0.00001, 0.00002, 0.12131}, 0.3829)
	m.set(modis.B5, Coefficients{0.00663, 0.01081, 0.01076, 0.46132}, 0.1131)
	m.set(modis.B7, Coefficients{0.00622, 0.01410, 0.01314, 0.55261}, 0.0694)
	return m
}

// Ice is the P2 model over all six bands.
func Ice() SurfaceModel {
	m := SurfaceModel{Name: "ice", Constant: -0.0015}
	m.set(modis.B1, Coefficients{-0.00054, 0.00002, 0.00001, 0.17600}, 0.160)
	m.set(modis.B2, Coefficients{-0.00924, 0.00033, -0.00005, 0.31750}, 0.291)
	m.set(modis.B3, Coefficients{-0.00369, 0.00000, 0.00007, 0.27632}, 0.243)
	m.set(modis.B4, Coefficients{-0.02920, -0.00810, 0.00462, 0.52360}, 0.116)
	m.set(modis.B5, Coefficients{-0.02388, 0.00656, 0.00227, 0.58473}, 0.112)
	m.set(modis.B7, Coefficients{-0.02081, 0.00683, 0.00390, 0.57500}, 0.081)
	return m
}

func (m *SurfaceModel) set(s modis.Spectral, c Coefficients, weight float64) {
	m.brdf[s] = c
	m.weights[s] = weight
	m.covers[s] = true
}

func (m SurfaceModel) Covers(s modis.Spectral) bool {
	return m.covers[s]
}

// Bands lists the spectral bands of the model in catalogue order.
func (m SurfaceModel) Bands() []modis.Spectral {
	var out []modis.Spectral
	for _, s := range modis.SpectralBands() {
		if m.covers[s] {
			out = append(out, s)
		}
	}
	return out
}

func (m SurfaceModel) BRDF(s modis.Spectral) Coefficients {
	return m.brdf[s]
}

func (m SurfaceModel) Weight(s modis.Spectral) float64 {
	return m.weights[s]
}
