// Package reference extracts albedo from the MOD10A1 and MCD43A3 products the
// Ren retrieval is compared against.
package reference

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

const (
	MOD10AlbedoBand       = "albedo_daily"
	MOD10AlbedoMaskedBand = "albedo_daily_masked"

	MCD43AlbedoBand       = "albedo_bsa_shortwave"
	MCD43AlbedoMaskedBand = "albedo_bsa_shortwave_masked"
	MCD43WhiteSkyBand     = "albedo_wsa_shortwave"
)

func passthrough(g *glacier.Masker) (*glacier.Masker, error) {
	if g != nil {
		return g, nil
	}
	return glacier.NewMasker(nil, glacier.DefaultThreshold, 1)
}

func checkPolicy(q quality.Decoder, want modis.Product) error {
	if q == nil {
		return fmt.Errorf("%w: no %s decoder", quality.ErrInvalidQualityPolicy, want)
	}
	if q.Product() != want {
		return fmt.Errorf("%w: %s policy used for %s", quality.ErrInvalidQualityPolicy, q.Product(), want)
	}
	return nil
}

// MOD10A1 reads the daily snow albedo. When the tile lacks
// Snow_Albedo_Daily_Tile the NDSI snow cover percentage stands in.
type MOD10A1 struct {
	Quality quality.Decoder
	Glacier *glacier.Masker
}

func NewMOD10A1(q quality.Decoder, g *glacier.Masker) (*MOD10A1, error) {
	if err := checkPolicy(q, modis.MOD10A1); err != nil {
		return nil, err
	}
	g, err := passthrough(g)
	if err != nil {
		return nil, err
	}
	return &MOD10A1{Quality: q, Glacier: g}, nil
}

func (m *MOD10A1) Name() string { return "MOD10A1" }

func (m *MOD10A1) Product() modis.Product { return modis.MOD10A1 }

func (m *MOD10A1) AlbedoBand() string { return MOD10AlbedoMaskedBand }

func (m *MOD10A1) Process(img raster.Image) (raster.Image, error) {
	if err := modis.MOD10A1Schema().Check(img); err != nil {
		return raster.Image{}, err
	}
	filtered, err := quality.Apply(m.Quality, img)
	if err != nil {
		return raster.Image{}, err
	}
	src, err := modis.SnowAlbedo.Resolve(filtered)
	if err != nil {
		return raster.Image{}, err
	}
	// The fallback is already clamped; the albedo tile carries fill codes above 100.
	albedo := raster.Map(MOD10AlbedoBand, src, func(v float64) (float64, bool) {
		if v < 0 || v > 100 {
			return 0, false
		}
		return v * modis.SnowAlbedoScale, true
	})
	masked, err := m.Glacier.Apply(MOD10AlbedoMaskedBand, albedo, img.Transform)
	if err != nil {
		return raster.Image{}, err
	}
	return filtered.WithBands(albedo, masked)
}

// MCD43A3 reads the shortwave black-sky albedo, keeping white-sky albedo as
// an extra band when present.
type MCD43A3 struct {
	Quality quality.Decoder
	Glacier *glacier.Masker
}

func NewMCD43A3(q quality.Decoder, g *glacier.Masker) (*MCD43A3, error) {
	if err := checkPolicy(q, modis.MCD43A3); err != nil {
		return nil, err
	}
	g, err := passthrough(g)
	if err != nil {
		return nil, err
	}
	return &MCD43A3{Quality: q, Glacier: g}, nil
}

func (m *MCD43A3) Name() string { return "MCD43A3" }

func (m *MCD43A3) Product() modis.Product { return modis.MCD43A3 }

func (m *MCD43A3) AlbedoBand() string { return MCD43AlbedoMaskedBand }

// fill is the MCD43A3 albedo fill value.
const fill = 32767

func descale(name string, b raster.Band) raster.Band {
	return raster.Map(name, b, func(v float64) (float64, bool) {
		if v == fill || v < 0 {
			return 0, false
		}
		return v * modis.BSAScale, true
	})
}

func (m *MCD43A3) Process(img raster.Image) (raster.Image, error) {
	if err := modis.MCD43A3Schema().Check(img); err != nil {
		return raster.Image{}, err
	}
	filtered, err := quality.Apply(m.Quality, img)
	if err != nil {
		return raster.Image{}, err
	}
	bsa, err := filtered.Select(modis.AlbedoBSAShortwave)
	if err != nil {
		return raster.Image{}, err
	}
	albedo := descale(MCD43AlbedoBand, bsa)
	masked, err := m.Glacier.Apply(MCD43AlbedoMaskedBand, albedo, img.Transform)
	if err != nil {
		return raster.Image{}, err
	}

	out := []raster.Band{albedo, masked}
	if wsa, err := filtered.Select(modis.AlbedoWSAShortwave); err == nil {
		out = append(out, descale(MCD43WhiteSkyBand, wsa))
	}
	return filtered.WithBands(out...)
}
