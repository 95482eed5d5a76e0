// Package terrain derives slope and aspect grids from a digital elevation model.
package terrain

import (
	"fmt"
	"math"

	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

const (
	SlopeBand  = "slope"
	AspectBand = "aspect"
)

// Terrain is slope and aspect in degrees. Aspect is the downslope direction,
// clockwise from north.
type Terrain struct {
	Slope  raster.Band
	Aspect raster.Band
}

// Flat returns zero slope everywhere.
func Flat(shape raster.Shape) Terrain {
	return Terrain{
		Slope:  raster.Constant(SlopeBand, shape, 0),
		Aspect: raster.Constant(AspectBand, shape, 0),
	}
}

// New wraps precomputed slope and aspect bands.
func New(slope, aspect raster.Band) (Terrain, error) {
	if slope.Shape != aspect.Shape {
		return Terrain{}, fmt.Errorf("%w: slope %s, aspect %s", raster.ErrShapeMismatch, slope.Shape, aspect.Shape)
	}
	return Terrain{Slope: slope.Rename(SlopeBand), Aspect: aspect.Rename(AspectBand)}, nil
}

// Derive computes slope and aspect with Horn's 3x3 finite difference. Cell
// sizes are in the same unit as elevation. Edge cells reuse their nearest
// in-grid neighbour; a cell with any masked neighbour is masked.
func Derive(dem raster.Band, cellX, cellY float64) (Terrain, error) {
	if cellX <= 0 || cellY <= 0 {
		return Terrain{}, fmt.Errorf("invalid DEM cell size %gx%g", cellX, cellY)
	}
	w, h := dem.Width, dem.Height
	slope := make([]float64, w*h)
	aspect := make([]float64, w*h)
	valid := make([]bool, w*h)

	z := func(x, y int) (float64, bool) {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return dem.At(x, y)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var win [3][3]float64
			ok := true
			for dy := -1; dy <= 1 && ok; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v, vok := z(x+dx, y+dy)
					if !vok {
						ok = false
						break
					}
					win[dy+1][dx+1] = v
				}
			}
			if !ok {
				continue
			}

			dzdx := ((win[0][2] + 2*win[1][2] + win[2][2]) - (win[0][0] + 2*win[1][0] + win[2][0])) / (8 * cellX)
			// Rows run south, so dzdy is the gradient towards the south.
			dzdy := ((win[2][0] + 2*win[2][1] + win[2][2]) - (win[0][0] + 2*win[0][1] + win[0][2])) / (8 * cellY)

			i := y*w + x
			slope[i] = math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
			a := math.Atan2(-dzdx, dzdy) * 180 / math.Pi
			if a < 0 {
				a += 360
			}
			aspect[i] = a
			valid[i] = true
		}
	}

	s, err := raster.NewMaskedBand(SlopeBand, dem.Shape, slope, valid)
	if err != nil {
		return Terrain{}, err
	}
	a, err := raster.NewMaskedBand(AspectBand, dem.Shape, aspect, valid)
	if err != nil {
		return Terrain{}, err
	}
	return Terrain{Slope: s, Aspect: a}, nil
}
