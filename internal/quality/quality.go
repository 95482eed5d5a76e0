// Package quality turns per-product QA bitfields into pixel validity masks.
//
// Policies are plain values. Presets are returned by functions so callers
// always receive their own copy.
package quality

import (
	"errors"
	"fmt"
	"sort"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

var ErrInvalidQualityPolicy = errors.New("invalid quality policy")

// Decoder builds the validity mask of one image. Mask fails with a
// raster.MissingBandError when a QA band is absent.
type Decoder interface {
	Product() modis.Product
	PolicyName() string
	Mask(img raster.Image) (raster.Mask, error)
}

// Apply masks every band of img with d's validity mask.
func Apply(d Decoder, img raster.Image) (raster.Image, error) {
	m, err := d.Mask(img)
	if err != nil {
		return raster.Image{}, fmt.Errorf("%s %s quality: %w", d.Product(), d.PolicyName(), err)
	}
	return img.UpdateMask(m)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQualityPolicy, fmt.Sprintf(format, args...))
}

// Lookup resolves a named preset for product.
func Lookup(product modis.Product, name string) (Decoder, error) {
	var (
		d  Decoder
		ok bool
	)
	switch product {
	case modis.MOD09GA:
		var p MOD09Policy
		p, ok = MOD09Preset(name)
		d = p
	case modis.MOD10A1:
		var p MOD10Policy
		p, ok = MOD10Preset(name)
		d = p
	case modis.MCD43A3:
		var p MCD43Policy
		p, ok = MCD43Preset(name)
		d = p
	default:
		return nil, invalid("no policies for product %q", product)
	}
	if !ok {
		return nil, invalid("unknown %s policy %q (known: %v)", product, name, Names(product))
	}
	return d, nil
}

// Names lists the preset names accepted by Lookup for product.
func Names(product modis.Product) []string {
	var names []string
	switch product {
	case modis.MOD09GA:
		for _, p := range MOD09Presets() {
			names = append(names, p.Name)
		}
		names = append(names, "strict")
	case modis.MOD10A1:
		for _, p := range MOD10Presets() {
			names = append(names, p.Name)
		}
	case modis.MCD43A3:
		for _, p := range MCD43Presets() {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// truth evaluates pred on every pixel where all inputs are valid.
func truth(bands []raster.Band, pred func(v []float64) bool) (raster.Mask, error) {
	b, err := raster.Zip("mask", bands, func(v []float64) (float64, bool) {
		if pred(v) {
			return 1, true
		}
		return 0, true
	})
	if err != nil {
		return raster.Mask{}, err
	}
	return raster.Truth(b), nil
}

func selectAll(img raster.Image, names ...string) ([]raster.Band, error) {
	bands := make([]raster.Band, len(names))
	for i, name := range names {
		b, err := img.Select(name)
		if err != nil {
			return nil, err
		}
		bands[i] = b
	}
	return bands, nil
}

func bits(v float64, shift, width uint) int {
	if v < 0 {
		return 0
	}
	return int((uint64(v) >> shift) & (1<<width - 1))
}
