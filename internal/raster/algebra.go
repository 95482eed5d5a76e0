package raster

import (
	"fmt"
	"math"
)

// Map applies fn to every valid pixel of b. Returning ok=false masks the output
// pixel, as does a NaN or infinite result.
func Map(name string, b Band, fn func(v float64) (float64, bool)) Band {
	values := make([]float64, len(b.values))
	valid := make([]bool, len(b.values))
	for i, v := range b.values {
		if !b.valid[i] {
			continue
		}
		out, ok := fn(v)
		if ok && !math.IsNaN(out) && !math.IsInf(out, 0) {
			values[i] = out
			valid[i] = true
		}
	}
	return Band{Name: name, Shape: b.Shape, values: values, valid: valid}
}

// Zip applies fn pixelwise across bands. A pixel is computed only where every
// input is valid.
func Zip(name string, bands []Band, fn func(v []float64) (float64, bool)) (Band, error) {
	if len(bands) == 0 {
		return Band{}, fmt.Errorf("zip %s: no input bands", name)
	}
	shape := bands[0].Shape
	for _, b := range bands[1:] {
		if b.Shape != shape {
			return Band{}, fmt.Errorf("%w: zip %s: %s is %s, expected %s", ErrShapeMismatch, name, b.Name, b.Shape, shape)
		}
	}

	values := make([]float64, shape.Len())
	valid := make([]bool, shape.Len())
	args := make([]float64, len(bands))
	for i := range values {
		ok := true
		for j, b := range bands {
			if !b.valid[i] {
				ok = false
				break
			}
			args[j] = b.values[i]
		}
		if !ok {
			continue
		}
		out, ok := fn(args)
		if ok && !math.IsNaN(out) && !math.IsInf(out, 0) {
			values[i] = out
			valid[i] = true
		}
	}
	return Band{Name: name, Shape: shape, values: values, valid: valid}, nil
}

// Scale multiplies every valid pixel by factor.
func Scale(b Band, factor float64) Band {
	return Map(b.Name, b, func(v float64) (float64, bool) { return v * factor, true })
}

// BitField extracts width bits starting at shift from an integer-coded band.
func BitField(name string, b Band, shift, width uint) Band {
	mask := uint64(1)<<width - 1
	return Map(name, b, func(v float64) (float64, bool) {
		if v < 0 {
			return 0, false
		}
		return float64((uint64(v) >> shift) & mask), true
	})
}

// Where returns base with value substituted wherever cond is valid and non-zero.
// The output keeps base's mask, so substitution never revives a pixel that base
// had masked.
func Where(base, cond, value Band) (Band, error) {
	if base.Shape != cond.Shape || base.Shape != value.Shape {
		return Band{}, fmt.Errorf("%w: where over %s, %s, %s", ErrShapeMismatch, base.Shape, cond.Shape, value.Shape)
	}
	values := make([]float64, len(base.values))
	valid := make([]bool, len(base.values))
	for i := range values {
		if !base.valid[i] {
			continue
		}
		if cond.valid[i] && cond.values[i] != 0 {
			values[i] = value.values[i]
			valid[i] = value.valid[i]
			continue
		}
		values[i] = base.values[i]
		valid[i] = true
	}
	return Band{Name: base.Name, Shape: base.Shape, values: values, valid: valid}, nil
}

// Compare encodes pred as a 1/0 band, masked where b is masked.
func Compare(name string, b Band, pred func(v float64) bool) Band {
	return Map(name, b, func(v float64) (float64, bool) {
		if pred(v) {
			return 1, true
		}
		return 0, true
	})
}

// Truth converts a 1/0 band to a mask; masked pixels are false.
func Truth(b Band) Mask {
	valid := make([]bool, len(b.values))
	for i, v := range b.values {
		valid[i] = b.valid[i] && v != 0
	}
	return Mask{Shape: b.Shape, valid: valid}
}
