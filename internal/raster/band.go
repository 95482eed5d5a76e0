package raster

import (
	"errors"
	"fmt"
)

var (
	ErrMissingBand   = errors.New("missing band")
	ErrShapeMismatch = errors.New("band shape mismatch")
)

// MissingBandError reports a band that an operation required but the image did not carry.
type MissingBandError struct {
	Image string
	Band  string
}

func (e *MissingBandError) Error() string {
	if e.Image == "" {
		return fmt.Sprintf("missing band %q", e.Band)
	}
	return fmt.Sprintf("image %s: missing band %q", e.Image, e.Band)
}

func (e *MissingBandError) Is(target error) bool {
	return target == ErrMissingBand
}

type Shape struct {
	Width  int
	Height int
}

func (s Shape) Len() int {
	return s.Width * s.Height
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Mask is a per-pixel validity grid. The zero value has no pixels.
type Mask struct {
	Shape
	valid []bool
}

func NewMask(shape Shape, fill bool) Mask {
	valid := make([]bool, shape.Len())
	if fill {
		for i := range valid {
			valid[i] = true
		}
	}
	return Mask{Shape: shape, valid: valid}
}

// MaskFrom copies valid into a new mask.
func MaskFrom(shape Shape, valid []bool) (Mask, error) {
	if len(valid) != shape.Len() {
		return Mask{}, fmt.Errorf("%w: %d values for %s grid", ErrShapeMismatch, len(valid), shape)
	}
	return Mask{Shape: shape, valid: append([]bool(nil), valid...)}, nil
}

func (m Mask) At(x, y int) bool {
	return m.valid[y*m.Width+x]
}

func (m Mask) Valid(i int) bool {
	return m.valid[i]
}

func (m Mask) Count() int {
	n := 0
	for _, v := range m.valid {
		if v {
			n++
		}
	}
	return n
}

// And returns the pixelwise conjunction of the two masks.
func (m Mask) And(o Mask) (Mask, error) {
	if m.Shape != o.Shape {
		return Mask{}, fmt.Errorf("%w: %s and %s", ErrShapeMismatch, m.Shape, o.Shape)
	}
	out := make([]bool, len(m.valid))
	for i := range out {
		out[i] = m.valid[i] && o.valid[i]
	}
	return Mask{Shape: m.Shape, valid: out}, nil
}

// Band is one named, immutable grid of values with its own validity mask.
type Band struct {
	Name string
	Shape
	values []float64
	valid  []bool
}

// NewBand copies values into a band where every pixel is valid.
func NewBand(name string, shape Shape, values []float64) (Band, error) {
	if len(values) != shape.Len() {
		return Band{}, fmt.Errorf("%w: band %s has %d values for %s grid", ErrShapeMismatch, name, len(values), shape)
	}
	valid := make([]bool, len(values))
	for i := range valid {
		valid[i] = true
	}
	return Band{Name: name, Shape: shape, values: append([]float64(nil), values...), valid: valid}, nil
}

// NewMaskedBand copies values and validity into a band.
func NewMaskedBand(name string, shape Shape, values []float64, valid []bool) (Band, error) {
	if len(values) != shape.Len() || len(valid) != shape.Len() {
		return Band{}, fmt.Errorf("%w: band %s for %s grid", ErrShapeMismatch, name, shape)
	}
	return Band{
		Name:   name,
		Shape:  shape,
		values: append([]float64(nil), values...),
		valid:  append([]bool(nil), valid...),
	}, nil
}

// Constant returns a fully valid band holding v everywhere.
func Constant(name string, shape Shape, v float64) Band {
	values := make([]float64, shape.Len())
	valid := make([]bool, shape.Len())
	for i := range values {
		values[i] = v
		valid[i] = true
	}
	return Band{Name: name, Shape: shape, values: values, valid: valid}
}

func (b Band) At(x, y int) (float64, bool) {
	return b.Value(y*b.Width + x)
}

// Value returns the value at flat index i and whether it is valid.
func (b Band) Value(i int) (float64, bool) {
	return b.values[i], b.valid[i]
}

// Values returns a copy of the raw values, masked pixels included.
func (b Band) Values() []float64 {
	return append([]float64(nil), b.values...)
}

// ValidValues returns the values of unmasked pixels in row-major order.
func (b Band) ValidValues() []float64 {
	out := make([]float64, 0, len(b.values))
	for i, v := range b.values {
		if b.valid[i] {
			out = append(out, v)
		}
	}
	return out
}

func (b Band) Mask() Mask {
	return Mask{Shape: b.Shape, valid: append([]bool(nil), b.valid...)}
}

func (b Band) ValidCount() int {
	return Mask{Shape: b.Shape, valid: b.valid}.Count()
}

// Rename shares the underlying grid, which is never written after construction.
func (b Band) Rename(name string) Band {
	b.Name = name
	return b
}

// UpdateMask masks every pixel that m marks invalid. Already masked pixels stay masked.
func (b Band) UpdateMask(m Mask) (Band, error) {
	if b.Shape != m.Shape {
		return Band{}, fmt.Errorf("%w: band %s is %s, mask is %s", ErrShapeMismatch, b.Name, b.Shape, m.Shape)
	}
	valid := make([]bool, len(b.valid))
	for i := range valid {
		valid[i] = b.valid[i] && m.valid[i]
	}
	return Band{Name: b.Name, Shape: b.Shape, values: b.values, valid: valid}, nil
}
