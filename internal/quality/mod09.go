package quality

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// state_1km sub-fields.
const (
	cloudStateShift    = 0
	shadowShift        = 2
	cirrusShift        = 8
	internalCloudShift = 10
	snowIceShift       = 12
)

// MOD09Policy decodes the MOD09GA state_1km band.
type MOD09Policy struct {
	Name                string  `yaml:"name"`
	Version             int     `yaml:"version"`
	CloudStateThreshold int     `yaml:"cloud_state_threshold"`
	AllowShadow         bool    `yaml:"allow_shadow"`
	CirrusThreshold     int     `yaml:"cirrus_threshold"`
	UseInternalCloud    bool    `yaml:"use_internal_cloud"`
	SnowIceMin          int     `yaml:"snow_ice_min"`
	SolarZenithMax      float64 `yaml:"solar_zenith_max"`
}

func (p MOD09Policy) Product() modis.Product { return modis.MOD09GA }
func (p MOD09Policy) PolicyName() string { return p.Name }

func (p MOD09Policy) Validate() error {
	if p.CloudStateThreshold < 0 || p.CloudStateThreshold > 3 {
		return invalid("%s: cloud state threshold %d outside 0-3", p.Name, p.CloudStateThreshold)
	}
	if p.CirrusThreshold < 0 || p.CirrusThreshold > 3 {
		return invalid("%s: cirrus threshold %d outside 0-3", p.Name, p.CirrusThreshold)
	}
	if p.SnowIceMin < -1 || p.SnowIceMin > 2 {
		return invalid("%s: snow/ice minimum %d outside -1-2", p.Name, p.SnowIceMin)
	}
	if p.SolarZenithMax <= 0 || p.SolarZenithMax > 90 {
		return invalid("%s: solar zenith maximum %g outside (0, 90]", p.Name, p.SolarZenithMax)
	}
	return nil
}

// Accept reports whether a pixel with packed state qa and solar zenith sza
// (degrees) passes the policy.
func (p MOD09Policy) Accept(qa, sza float64) bool {
	if bits(qa, cloudStateShift, 2) > p.CloudStateThreshold {
		return false
	}
	if !p.AllowShadow && bits(qa, shadowShift, 1) != 0 {
		return false
	}
	if bits(qa, cirrusShift, 2) > p.CirrusThreshold {
		return false
	}
	if p.UseInternalCloud && bits(qa, internalCloudShift, 1) != 0 {
		return false
	}
	if bits(qa, snowIceShift, 2) <= p.SnowIceMin {
		return false
	}
	return sza < p.SolarZenithMax
}

func (p MOD09Policy) Mask(img raster.Image) (raster.Mask, error) {
	bands, err := selectAll(img, modis.StateQA, modis.SolarZenith)
	if err != nil {
		return raster.Mask{}, err
	}
	return truth(bands, func(v []float64) bool {
		return p.Accept(v[0], v[1]*modis.AngleScale)
	})
}

func (p MOD09Policy) String() string {
	return fmt.Sprintf("cloud<=%d shadow=%t cirrus<=%d internal=%t snow_ice>%d sza<%g",
		p.CloudStateThreshold, p.AllowShadow, p.CirrusThreshold, p.UseInternalCloud, p.SnowIceMin, p.SolarZenithMax)
}

func MOD09Standard() MOD09Policy {
	return MOD09Policy{
		Name:                "standard",
		Version:             1,
		CloudStateThreshold: 0,
		CirrusThreshold:     0,
		UseInternalCloud:    true,
		SnowIceMin:          0,
		SolarZenithMax:      70,
	}
}

func MOD09Relaxed() MOD09Policy {
	return MOD09Policy{
		Name:                "relaxed",
		Version:             1,
		CloudStateThreshold: 1,
		CirrusThreshold:     0,
		SnowIceMin:          0,
		SolarZenithMax:      75,
	}
}

func MOD09Moderate() MOD09Policy {
	return MOD09Policy{
		Name:                "moderate",
		Version:             1,
		CloudStateThreshold: 1,
		CirrusThreshold:     1,
		UseInternalCloud:    true,
		SnowIceMin:          0,
		SolarZenithMax:      80,
	}
}

// MOD09Maximum keeps pixels with no snow/ice detection at all.
func MOD09Maximum() MOD09Policy {
	return MOD09Policy{
		Name:                "maximum",
		Version:             1,
		CloudStateThreshold: 2,
		CirrusThreshold:     2,
		SnowIceMin:          -1,
		SolarZenithMax:      85,
	}
}

func MOD09GlacierOptimized() MOD09Policy {
	p := MOD09Relaxed()
	p.Name = "glacier_optimized"
	return p
}

func MOD09Presets() []MOD09Policy {
	return []MOD09Policy{MOD09Standard(), MOD09Relaxed(), MOD09Moderate(), MOD09Maximum(), MOD09GlacierOptimized()}
}

// MOD09Preset looks a preset up by name. "strict" is accepted for standard.
func MOD09Preset(name string) (MOD09Policy, bool) {
	if name == "strict" {
		return MOD09Standard(), true
	}
	for _, p := range MOD09Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return MOD09Policy{}, false
}
