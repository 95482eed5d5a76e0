package raster

import (
	"fmt"
	"math"
	"time"
)

// GeoTransform follows the GDAL affine convention:
// Xgeo = gt[0] + x*gt[1] + y*gt[2], Ygeo = gt[3] + x*gt[4] + y*gt[5].
type GeoTransform [6]float64

// PixelCenter returns the georeferenced centre of pixel (x, y).
func (gt GeoTransform) PixelCenter(x, y int) (float64, float64) {
	return gt.Point(float64(x)+0.5, float64(y)+0.5)
}

// Point maps fractional pixel coordinates to georeferenced coordinates.
func (gt GeoTransform) Point(px, py float64) (float64, float64) {
	return gt[0] + px*gt[1] + py*gt[2], gt[3] + px*gt[4] + py*gt[5]
}

// Scale is the pixel width in projection units.
func (gt GeoTransform) Scale() float64 {
	return math.Abs(gt[1])
}

// Image is an immutable set of same-shaped bands sharing one projection.
// Every transformation returns a new Image.
type Image struct {
	ID         string
	Time       time.Time
	Shape      Shape
	Transform  GeoTransform
	Projection string

	bands []Band
	index map[string]int
}

func NewImage(id string, acquired time.Time, shape Shape, gt GeoTransform, projection string, bands ...Band) (Image, error) {
	img := Image{
		ID:         id,
		Time:       acquired,
		Shape:      shape,
		Transform:  gt,
		Projection: projection,
		index:      map[string]int{},
	}
	return img.WithBands(bands...)
}

func (img Image) Select(name string) (Band, error) {
	i, ok := img.index[name]
	if !ok {
		return Band{}, &MissingBandError{Image: img.ID, Band: name}
	}
	return img.bands[i], nil
}

func (img Image) Has(name string) bool {
	_, ok := img.index[name]
	return ok
}

func (img Image) BandNames() []string {
	names := make([]string, len(img.bands))
	for i, b := range img.bands {
		names[i] = b.Name
	}
	return names
}

func (img Image) Bands() []Band {
	return append([]Band(nil), img.bands...)
}

// WithBands returns a copy of img with bands appended, replacing any band of the same name.
func (img Image) WithBands(bands ...Band) (Image, error) {
	out := img
	out.bands = append([]Band(nil), img.bands...)
	out.index = make(map[string]int, len(img.index)+len(bands))
	for k, v := range img.index {
		out.index[k] = v
	}
	for _, b := range bands {
		if b.Shape != img.Shape {
			return Image{}, fmt.Errorf("%w: image %s is %s, band %s is %s", ErrShapeMismatch, img.ID, img.Shape, b.Name, b.Shape)
		}
		if i, ok := out.index[b.Name]; ok {
			out.bands[i] = b
			continue
		}
		out.index[b.Name] = len(out.bands)
		out.bands = append(out.bands, b)
	}
	return out, nil
}

// UpdateMask applies m to every band.
func (img Image) UpdateMask(m Mask) (Image, error) {
	out := img
	out.bands = make([]Band, len(img.bands))
	for i, b := range img.bands {
		masked, err := b.UpdateMask(m)
		if err != nil {
			return Image{}, fmt.Errorf("image %s: %w", img.ID, err)
		}
		out.bands[i] = masked
	}
	return out, nil
}
