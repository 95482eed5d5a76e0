package quality

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// MCD43Policy filters MCD43A3 on its mandatory quality bands. A grouping is
// good when its code is at most MaxQuality (0 full inversion, 1 magnitude
// inversion).
type MCD43Policy struct {
	Name             string
	Version          int
	MaxQuality       int
	MinGoodBands     int
	RequireShortwave bool
}

func (p MCD43Policy) Product() modis.Product { return modis.MCD43A3 }
func (p MCD43Policy) PolicyName() string { return p.Name }

func (p MCD43Policy) Validate() error {
	if p.MaxQuality < 0 || p.MaxQuality > 1 {
		return invalid("%s: max quality %d outside 0-1", p.Name, p.MaxQuality)
	}
	if p.MinGoodBands < 1 || p.MinGoodBands > 3 {
		return invalid("%s: min good bands %d outside 1-3", p.Name, p.MinGoodBands)
	}
	return nil
}

// Accept takes the shortwave, visible and near-infrared codes in that order.
func (p MCD43Policy) Accept(shortwave, vis, nir float64) bool {
	good := func(q float64) bool { return q >= 0 && int(q) <= p.MaxQuality }
	if p.RequireShortwave && !good(shortwave) {
		return false
	}
	n := 0
	for _, q := range []float64{shortwave, vis, nir} {
		if good(q) {
			n++
		}
	}
	return n >= p.MinGoodBands
}

func (p MCD43Policy) Mask(img raster.Image) (raster.Mask, error) {
	bands, err := selectAll(img, modis.MandatoryQAShortwave, modis.MandatoryQAVisible, modis.MandatoryQANIR)
	if err != nil {
		return raster.Mask{}, err
	}
	return truth(bands, func(v []float64) bool {
		return p.Accept(v[0], v[1], v[2])
	})
}

func (p MCD43Policy) String() string {
	return fmt.Sprintf("quality<=%d good_bands>=%d shortwave_required=%t", p.MaxQuality, p.MinGoodBands, p.RequireShortwave)
}

func MCD43Standard() MCD43Policy {
	return MCD43Policy{Name: "standard", Version: 1, MaxQuality: 1, MinGoodBands: 2, RequireShortwave: true}
}

func MCD43Relaxed() MCD43Policy {
	return MCD43Policy{Name: "relaxed", Version: 1, MaxQuality: 1, MinGoodBands: 1, RequireShortwave: true}
}

func MCD43Presets() []MCD43Policy {
	return []MCD43Policy{MCD43Standard(), MCD43Relaxed()}
}

func MCD43Preset(name string) (MCD43Policy, bool) {
	for _, p := range MCD43Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return MCD43Policy{}, false
}
