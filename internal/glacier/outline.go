// Package glacier rasterises glacier outlines into fractional coverage and
// masks imagery to glacierised pixels.
package glacier

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrNoPolygons = errors.New("outline has no polygons")

// Outline is the union of glacier polygons, in the projection of the imagery
// it is applied to.
type Outline struct {
	Polygons orb.MultiPolygon
	bound    orb.Bound
}

func NewOutline(polygons orb.MultiPolygon) (*Outline, error) {
	if len(polygons) == 0 {
		return nil, ErrNoPolygons
	}
	return &Outline{Polygons: polygons, bound: polygons.Bound()}, nil
}

// LoadOutline reads a GeoJSON FeatureCollection of Polygon and MultiPolygon features.
func LoadOutline(path string) (*Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glacier outline: %w", err)
	}
	o, err := ParseOutline(data)
	if err != nil {
		return nil, fmt.Errorf("glacier outline %s: %w", path, err)
	}
	return o, nil
}

func ParseOutline(data []byte) (*Outline, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	var mp orb.MultiPolygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		}
	}
	return NewOutline(mp)
}

func (o *Outline) Bound() orb.Bound {
	return o.bound
}

// Transform rewrites every vertex through fn, which receives all x and y
// coordinates at once and transforms them in place.
func (o *Outline) Transform(fn func(xs, ys []float64) error) (*Outline, error) {
	var xs, ys []float64
	for _, p := range o.Polygons {
		for _, r := range p {
			for _, pt := range r {
				xs = append(xs, pt[0])
				ys = append(ys, pt[1])
			}
		}
	}
	if err := fn(xs, ys); err != nil {
		return nil, err
	}

	out := make(orb.MultiPolygon, len(o.Polygons))
	i := 0
	for pi, p := range o.Polygons {
		poly := make(orb.Polygon, len(p))
		for ri, r := range p {
			ring := make(orb.Ring, len(r))
			for k := range r {
				ring[k] = orb.Point{xs[i], ys[i]}
				i++
			}
			poly[ri] = ring
		}
		out[pi] = poly
	}
	return NewOutline(out)
}
