package quality

import (
	"fmt"
	"strings"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// Tier is the NDSI_Snow_Cover_Basic_QA level.
type Tier int

const (
	TierBest Tier = iota
	TierGood
	TierOK
	TierPoor
)

// Basic QA codes that are never accepted.
const (
	BasicQANight = 211
	BasicQAOcean = 239
)

func (t Tier) String() string {
	switch t {
	case TierBest:
		return "best"
	case TierGood:
		return "good"
	case TierOK:
		return "ok"
	case TierPoor:
		return "all"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// AlgorithmFlag is one bit of NDSI_Snow_Cover_Algorithm_Flags_QA.
type AlgorithmFlag uint8

const (
	InlandWater AlgorithmFlag = 1 << iota
	VisibleScreenFail
	NDSIScreenFail
	TempHeightFail
	SWIRAnomaly
	ProbablyCloudy
	ProbablyClear
	HighSolarZenith
)

var flagNames = []struct {
	flag AlgorithmFlag
	name string
}{
	{InlandWater, "inland_water"},
	{VisibleScreenFail, "visible_screen_fail"},
	{NDSIScreenFail, "ndsi_screen_fail"},
	{TempHeightFail, "temp_height_fail"},
	{SWIRAnomaly, "swir_anomaly"},
	{ProbablyCloudy, "probably_cloudy"},
	{ProbablyClear, "probably_clear"},
	{HighSolarZenith, "high_solar_zenith"},
}

func (f AlgorithmFlag) String() string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// MOD10Policy filters MOD10A1 on its basic tier and algorithm flags. Exclude
// holds every flag that invalidates a pixel when set.
type MOD10Policy struct {
	Name       string
	Version    int
	BasicLevel Tier
	Exclude    AlgorithmFlag
}

func (p MOD10Policy) Product() modis.Product { return modis.MOD10A1 }
func (p MOD10Policy) PolicyName() string { return p.Name }

func (p MOD10Policy) Validate() error {
	if p.BasicLevel < TierBest || p.BasicLevel > TierPoor {
		return invalid("%s: basic level %d outside 0-3", p.Name, int(p.BasicLevel))
	}
	return nil
}

func (p MOD10Policy) Accept(basic, flags float64) bool {
	code := int(basic)
	if code == BasicQANight || code == BasicQAOcean || basic < 0 {
		return false
	}
	if Tier(code) > p.BasicLevel {
		return false
	}
	return AlgorithmFlag(bits(flags, 0, 8))&p.Exclude == 0
}

func (p MOD10Policy) Mask(img raster.Image) (raster.Mask, error) {
	bands, err := selectAll(img, modis.NDSIBasicQA, modis.NDSIAlgorithmFlags)
	if err != nil {
		return raster.Mask{}, err
	}
	return truth(bands, func(v []float64) bool {
		return p.Accept(v[0], v[1])
	})
}

func (p MOD10Policy) String() string {
	return fmt.Sprintf("basic<=%s exclude=%s", p.BasicLevel, p.Exclude)
}

func MOD10Standard() MOD10Policy {
	return MOD10Policy{
		Name:       "standard",
		Version:    1,
		BasicLevel: TierGood,
		Exclude:    InlandWater | VisibleScreenFail | NDSIScreenFail | TempHeightFail | SWIRAnomaly | ProbablyCloudy | HighSolarZenith,
	}
}

func MOD10Relaxed() MOD10Policy {
	return MOD10Policy{
		Name:       "relaxed",
		Version:    1,
		BasicLevel: TierOK,
		Exclude:    VisibleScreenFail | NDSIScreenFail,
	}
}

func MOD10Presets() []MOD10Policy {
	return []MOD10Policy{MOD10Standard(), MOD10Relaxed()}
}

func MOD10Preset(name string) (MOD10Policy, bool) {
	for _, p := range MOD10Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return MOD10Policy{}, false
}
