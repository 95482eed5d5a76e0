// Package modis holds the band catalogue of the MODIS products used for
// glacier albedo retrieval, together with their scale factors.
package modis

import "fmt"

type Product string

const (
	MOD09GA Product = "MOD09GA"
	MOD10A1 Product = "MOD10A1"
	MCD43A3 Product = "MCD43A3"
)

func ParseProduct(s string) (Product, error) {
	switch Product(s) {
	case MOD09GA, MOD10A1, MCD43A3:
		return Product(s), nil
	}
	return "", fmt.Errorf("unknown product %q", s)
}

// MOD09GA surface reflectance and geometry bands.
const (
	StateQA       = "state_1km"
	SolarZenith   = "SolarZenith"
	SolarAzimuth  = "SolarAzimuth"
	SensorZenith  = "SensorZenith"
	SensorAzimuth = "SensorAzimuth"

	SensorZenithCorrected = "sensor_zenith_corrected"
	SolarZenithCorrected  = "solar_zenith_corrected"
)

// MOD10A1 snow cover bands.
const (
	NDSISnowCover       = "NDSI_Snow_Cover"
	NDSIBasicQA         = "NDSI_Snow_Cover_Basic_QA"
	NDSIAlgorithmFlags  = "NDSI_Snow_Cover_Algorithm_Flags_QA"
	SnowAlbedoDailyTile = "Snow_Albedo_Daily_Tile"
)

// MCD43A3 BRDF/albedo bands.
const (
	AlbedoBSAShortwave   = "Albedo_BSA_shortwave"
	AlbedoWSAShortwave   = "Albedo_WSA_shortwave"
	MandatoryQAShortwave = "BRDF_Albedo_Band_Mandatory_Quality_shortwave"
	MandatoryQAVisible   = "BRDF_Albedo_Band_Mandatory_Quality_vis"
	MandatoryQANIR       = "BRDF_Albedo_Band_Mandatory_Quality_nir"
)

const (
	ReflectanceScale = 0.0001
	AngleScale       = 0.01
	BSAScale         = 0.001
	SnowAlbedoScale  = 0.01
)

// Spectral indexes the six MOD09GA reflectance bands used by the Ren method.
// Band 6 is not used.
type Spectral int

const (
	B1 Spectral = iota
	B2
	B3
	B4
	B5
	B7
	NumSpectral
)

var spectralNumbers = [NumSpectral]int{1, 2, 3, 4, 5, 7}

// SpectralBands lists every spectral band in catalogue order.
func SpectralBands() []Spectral {
	out := make([]Spectral, NumSpectral)
	for i := range out {
		out[i] = Spectral(i)
	}
	return out
}

// Number is the MODIS band number, e.g. 7 for B7.
func (s Spectral) Number() int {
	return spectralNumbers[s]
}

func (s Spectral) String() string {
	return fmt.Sprintf("b%d", s.Number())
}

// Reflectance is the raw scaled-integer band name, e.g. sur_refl_b01.
func (s Spectral) Reflectance() string {
	return fmt.Sprintf("sur_refl_b%02d", s.Number())
}

// Topo is the name of the topographically corrected reflectance band.
func (s Spectral) Topo() string {
	return s.Reflectance() + "_topo"
}

func (s Spectral) Narrowband() string {
	return fmt.Sprintf("narrowband_b%d", s.Number())
}

// Bands lists the bands of a product in the order the archive delivers them
// as GeoTIFF layers.
func Bands(p Product) []string {
	switch p {
	case MOD09GA:
		out := []string{StateQA, SolarZenith, SolarAzimuth, SensorZenith, SensorAzimuth}
		for _, s := range SpectralBands() {
			out = append(out, s.Reflectance())
		}
		return out
	case MOD10A1:
		return []string{NDSISnowCover, NDSIBasicQA, NDSIAlgorithmFlags, SnowAlbedoDailyTile}
	case MCD43A3:
		return []string{AlbedoBSAShortwave, AlbedoWSAShortwave, MandatoryQAShortwave, MandatoryQAVisible, MandatoryQANIR}
	}
	return nil
}
