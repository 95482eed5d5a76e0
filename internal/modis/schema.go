package modis

import (
	"errors"
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// Input names a band consumed by a processing stage. Preferred is used when
// present; otherwise Fallback is read and multiplied by FallbackScale.
type Input struct {
	Preferred     string
	Fallback      string
	FallbackScale float64

	// Clamp bounds the fallback band before scaling when Max > Min.
	Min, Max float64
}

// Resolve selects the input band for img once.
func (in Input) Resolve(img raster.Image) (raster.Band, error) {
	if b, err := img.Select(in.Preferred); err == nil {
		return b, nil
	} else if in.Fallback == "" {
		return raster.Band{}, err
	}

	b, err := img.Select(in.Fallback)
	if err != nil {
		return raster.Band{}, err
	}
	lo, hi := in.Min, in.Max
	return raster.Map(in.Preferred, b, func(v float64) (float64, bool) {
		if hi > lo {
			v = min(max(v, lo), hi)
		}
		return v * in.FallbackScale, true
	}), nil
}

// Satisfied reports whether img carries this input in either form.
func (in Input) Satisfied(img raster.Image) bool {
	return img.Has(in.Preferred) || (in.Fallback != "" && img.Has(in.Fallback))
}

// Schema declares the bands one product must carry.
type Schema struct {
	Product  Product
	Required []string
	Inputs   []Input
}

// Check returns a MissingBandError for the first band img lacks.
func (s Schema) Check(img raster.Image) error {
	var errs []error
	for _, name := range s.Required {
		if !img.Has(name) {
			errs = append(errs, &raster.MissingBandError{Image: img.ID, Band: name})
		}
	}
	for _, in := range s.Inputs {
		if !in.Satisfied(img) {
			errs = append(errs, &raster.MissingBandError{Image: img.ID, Band: in.Preferred})
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s schema: %w", s.Product, errors.Join(errs...))
	}
	return nil
}

// Green and SWIR feed the snow index. The corrected bands are preferred.
var (
	Green = Input{Preferred: B4.Topo(), Fallback: B4.Reflectance(), FallbackScale: ReflectanceScale}
	SWIR  = Input{Preferred: B7.Topo(), Fallback: B7.Reflectance(), FallbackScale: ReflectanceScale}
)

// SnowAlbedo is the MOD10A1 albedo input. NDSI snow cover is read as a
// percentage when the albedo tile is absent.
var SnowAlbedo = Input{
	Preferred:     SnowAlbedoDailyTile,
	Fallback:      NDSISnowCover,
	FallbackScale: 1,
	Min:           0,
	Max:           100,
}

func MOD09GASchema() Schema {
	required := []string{StateQA, SolarZenith, SolarAzimuth, SensorZenith, SensorAzimuth}
	for _, s := range SpectralBands() {
		required = append(required, s.Reflectance())
	}
	return Schema{Product: MOD09GA, Required: required}
}

func MOD10A1Schema() Schema {
	return Schema{
		Product:  MOD10A1,
		Required: []string{NDSIBasicQA, NDSIAlgorithmFlags},
		Inputs:   []Input{SnowAlbedo},
	}
}

func MCD43A3Schema() Schema {
	return Schema{
		Product:  MCD43A3,
		Required: []string{AlbedoBSAShortwave, MandatoryQAShortwave, MandatoryQAVisible, MandatoryQANIR},
	}
}

func SchemaFor(p Product) Schema {
	switch p {
	case MOD10A1:
		return MOD10A1Schema()
	case MCD43A3:
		return MCD43A3Schema()
	default:
		return MOD09GASchema()
	}
}
