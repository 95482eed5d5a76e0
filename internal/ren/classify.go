package ren

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

const (
	NDSIBand     = "NDSI"
	SnowMaskBand = "snow_mask"

	NDSIThreshold = 0.4
)

// NDSI returns (green-swir)/(green+swir). ok is false when the sum is zero.
func NDSI(green, swir float64) (float64, bool) {
	sum := green + swir
	if sum == 0 {
		return 0, false
	}
	return (green - swir) / sum, true
}

func IsSnow(ndsi float64) bool {
	return ndsi > NDSIThreshold
}

// ClassifySurface adds the NDSI band and the 1/0 snow_mask band. The corrected
// green and SWIR bands are used when img carries them.
func ClassifySurface(img raster.Image) (raster.Image, error) {
	green, err := modis.Green.Resolve(img)
	if err != nil {
		return raster.Image{}, fmt.Errorf("classify surface: %w", err)
	}
	swir, err := modis.SWIR.Resolve(img)
	if err != nil {
		return raster.Image{}, fmt.Errorf("classify surface: %w", err)
	}

	ndsi, err := raster.Zip(NDSIBand, []raster.Band{green, swir}, func(v []float64) (float64, bool) {
		return NDSI(v[0], v[1])
	})
	if err != nil {
		return raster.Image{}, fmt.Errorf("classify surface: %w", err)
	}
	return img.WithBands(ndsi, raster.Compare(SnowMaskBand, ndsi, IsSnow))
}
