package glacier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

const (
	FractionBand = "glacier_fraction"

	DefaultThreshold = 0.50
	// DefaultSupersample resolves a 500 m MODIS pixel at roughly 30 m.
	DefaultSupersample = 16
	DefaultMinPixels   = 100
)

var ErrInvalidThreshold = errors.New("invalid abundance threshold")

type gridKey struct {
	shape raster.Shape
	gt    raster.GeoTransform
}

// Masker keeps pixels whose glacier coverage is at least Threshold. Coverage
// grids are cached per image grid, so one Masker serves a whole time series
// concurrently.
type Masker struct {
	outline     *Outline
	threshold   float64
	supersample int

	mu        sync.Mutex
	fractions map[gridKey]raster.Band
}

// NewMasker builds a masker for outline. A nil outline yields a passthrough
// masker with full coverage everywhere.
func NewMasker(outline *Outline, threshold float64, supersample int) (*Masker, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %g outside (0, 1]", ErrInvalidThreshold, threshold)
	}
	if supersample < 1 {
		return nil, fmt.Errorf("supersampling factor %d must be positive", supersample)
	}
	return &Masker{
		outline:     outline,
		threshold:   threshold,
		supersample: supersample,
		fractions:   map[gridKey]raster.Band{},
	}, nil
}

func (m *Masker) Threshold() float64 { return m.threshold }

func (m *Masker) Passthrough() bool { return m.outline == nil }

// Fraction returns the glacier coverage (0-1) of every pixel of the grid,
// estimated from supersample x supersample subpixel centres.
func (m *Masker) Fraction(shape raster.Shape, gt raster.GeoTransform) raster.Band {
	if m.outline == nil {
		return raster.Constant(FractionBand, shape, 1)
	}
	key := gridKey{shape, gt}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.fractions[key]; ok {
		return f
	}
	f := m.rasterize(shape, gt)
	m.fractions[key] = f
	return f
}

func (m *Masker) rasterize(shape raster.Shape, gt raster.GeoTransform) raster.Band {
	n := m.supersample
	step := 1 / float64(n)
	total := float64(n * n)
	values := make([]float64, shape.Len())

	for y := 0; y < shape.Height; y++ {
		for x := 0; x < shape.Width; x++ {
			if !m.outline.bound.Intersects(pixelBound(gt, x, y)) {
				continue
			}
			inside := 0
			for j := 0; j < n; j++ {
				for i := 0; i < n; i++ {
					px, py := gt.Point(float64(x)+(float64(i)+0.5)*step, float64(y)+(float64(j)+0.5)*step)
					if m.contains(orb.Point{px, py}) {
						inside++
					}
				}
			}
			values[y*shape.Width+x] = float64(inside) / total
		}
	}
	b, _ := raster.NewBand(FractionBand, shape, values)
	return b
}

func (m *Masker) contains(pt orb.Point) bool {
	for _, p := range m.outline.Polygons {
		if p.Bound().Contains(pt) && planar.PolygonContains(p, pt) {
			return true
		}
	}
	return false
}

func pixelBound(gt raster.GeoTransform, x, y int) orb.Bound {
	px, py := gt.Point(float64(x), float64(y))
	b := orb.Point{px, py}.Bound()
	for _, c := range [][2]float64{{1, 0}, {0, 1}, {1, 1}} {
		px, py = gt.Point(float64(x)+c[0], float64(y)+c[1])
		b = b.Extend(orb.Point{px, py})
	}
	return b
}

// Mask is the thresholded coverage of the grid.
func (m *Masker) Mask(shape raster.Shape, gt raster.GeoTransform) raster.Mask {
	f := m.Fraction(shape, gt)
	return raster.Truth(raster.Compare("glacier_mask", f, func(v float64) bool { return v >= m.threshold }))
}

// Apply masks b to glacier pixels and renames it. Applying it again to its
// own output changes nothing.
func (m *Masker) Apply(name string, b raster.Band, gt raster.GeoTransform) (raster.Band, error) {
	masked, err := b.UpdateMask(m.Mask(b.Shape, gt))
	if err != nil {
		return raster.Band{}, fmt.Errorf("glacier mask: %w", err)
	}
	return masked.Rename(name), nil
}

// Sufficient reports whether the grid holds at least minPixels glacier pixels.
func (m *Masker) Sufficient(shape raster.Shape, gt raster.GeoTransform, minPixels int) bool {
	return m.Mask(shape, gt).Count() >= minPixels
}
