// Package stats aggregates band values over a region.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

var ErrTooManyPixels = errors.New("too many pixels in region")

// Reducer selects the statistics ReduceRegion computes. Count is always set.
type Reducer uint8

const (
	Mean Reducer = 1 << iota
	StdDev
	Min
	Max
	Count

	Combined = Mean | StdDev | Min | Max | Count
)

type Options struct {
	Reducers Reducer

	// Region restricts the reduction to pixels whose centre it contains.
	// Nil means the whole grid.
	Region orb.Geometry

	// Scale is the sampling distance in projection units. Zero samples
	// every pixel.
	Scale      float64
	MaxPixels  int
	BestEffort bool
}

// Result holds the requested statistics over the valid sampled pixels. An
// empty region or a fully masked band gives Count 0 and zero statistics.
type Result struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Count  int

	// Scale is the sampling distance actually used.
	Scale float64

	// Approximate is set when BestEffort coarsened the sampling.
	Approximate bool
}

// ReduceRegion mirrors a remote reduceRegion call over an in-memory band.
func ReduceRegion(b raster.Band, gt raster.GeoTransform, opts Options) (Result, error) {
	if opts.Reducers == 0 {
		opts.Reducers = Combined
	}
	native := gt.Scale()
	stride := 1
	if opts.Scale > 0 && native > 0 {
		stride = max(1, int(math.Round(opts.Scale/native)))
	}

	inRegion := func(x, y int) bool {
		if opts.Region == nil {
			return true
		}
		px, py := gt.PixelCenter(x, y)
		return Contains(opts.Region, orb.Point{px, py})
	}

	count := func(stride int) int {
		n := 0
		for y := 0; y < b.Height; y += stride {
			for x := 0; x < b.Width; x += stride {
				if inRegion(x, y) {
					n++
				}
			}
		}
		return n
	}

	res := Result{}
	if opts.MaxPixels > 0 {
		for n := count(stride); n > opts.MaxPixels; n = count(stride) {
			if !opts.BestEffort {
				return Result{}, fmt.Errorf("%w: %d sampled pixels exceed %d", ErrTooManyPixels, n, opts.MaxPixels)
			}
			if stride >= max(b.Width, b.Height) {
				break
			}
			stride *= 2
			res.Approximate = true
		}
	}
	res.Scale = float64(stride) * native

	var values []float64
	for y := 0; y < b.Height; y += stride {
		for x := 0; x < b.Width; x += stride {
			if !inRegion(x, y) {
				continue
			}
			if v, ok := b.At(x, y); ok {
				values = append(values, v)
			}
		}
	}

	res.Count = len(values)
	if res.Count == 0 {
		return res, nil
	}
	if opts.Reducers&(Mean|StdDev) != 0 {
		mean, std := stat.PopMeanStdDev(values, nil)
		if opts.Reducers&Mean != 0 {
			res.Mean = mean
		}
		if opts.Reducers&StdDev != 0 {
			res.StdDev = std
		}
	}
	if opts.Reducers&Min != 0 {
		res.Min = floats.Min(values)
	}
	if opts.Reducers&Max != 0 {
		res.Max = floats.Max(values)
	}
	return res, nil
}

// Contains reports whether g contains pt. Only areal geometries contain points.
func Contains(g orb.Geometry, pt orb.Point) bool {
	switch g := g.(type) {
	case orb.Bound:
		return g.Contains(pt)
	case orb.Ring:
		return planar.RingContains(g, pt)
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Collection:
		for _, c := range g {
			if Contains(c, pt) {
				return true
			}
		}
	}
	return false
}
