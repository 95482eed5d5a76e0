package ren

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
	"github.com/glacier-albedo/modis-albedo-cli/internal/terrain"
)

// Pipeline runs the full retrieval on one MOD09GA image. It holds no
// per-image state and is safe for concurrent use.
type Pipeline struct {
	Quality quality.Decoder

	// Terrain must match the image grid. Nil means flat terrain.
	Terrain *terrain.Terrain
	Glacier *glacier.Masker
	Topo    TopoOptions
}

func NewPipeline(q quality.Decoder, t *terrain.Terrain, g *glacier.Masker) (*Pipeline, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: no MOD09GA decoder", quality.ErrInvalidQualityPolicy)
	}
	if q.Product() != modis.MOD09GA {
		return nil, fmt.Errorf("%w: %s policy used for MOD09GA", quality.ErrInvalidQualityPolicy, q.Product())
	}
	if g == nil {
		var err error
		if g, err = glacier.NewMasker(nil, glacier.DefaultThreshold, 1); err != nil {
			return nil, err
		}
	}
	return &Pipeline{Quality: q, Terrain: t, Glacier: g, Topo: DefaultTopoOptions()}, nil
}

func (p *Pipeline) Name() string { return "Ren" }
func (p *Pipeline) Product() modis.Product { return modis.MOD09GA }
func (p *Pipeline) AlbedoBand() string { return BroadbandMaskedBand }

// Process returns img with every intermediate band, the broadband albedo and
// its glacier-masked copy added.
func (p *Pipeline) Process(img raster.Image) (raster.Image, error) {
	if err := modis.MOD09GASchema().Check(img); err != nil {
		return raster.Image{}, err
	}
	filtered, err := quality.Apply(p.Quality, img)
	if err != nil {
		return raster.Image{}, err
	}

	t := terrain.Flat(img.Shape)
	if p.Terrain != nil {
		t = *p.Terrain
	}
	corrected, err := TopographicCorrection(filtered, t, p.Topo)
	if err != nil {
		return raster.Image{}, err
	}
	classified, err := ClassifySurface(corrected)
	if err != nil {
		return raster.Image{}, err
	}

	snow, err := AnisotropyCorrection(classified, Snow())
	if err != nil {
		return raster.Image{}, err
	}
	ice, err := AnisotropyCorrection(classified, Ice())
	if err != nil {
		return raster.Image{}, err
	}
	composed, err := ComposeAlbedo(classified, ice, snow)
	if err != nil {
		return raster.Image{}, err
	}

	broadband, err := composed.Select(BroadbandBand)
	if err != nil {
		return raster.Image{}, err
	}
	masked, err := p.Glacier.Apply(BroadbandMaskedBand, broadband, img.Transform)
	if err != nil {
		return raster.Image{}, err
	}
	return composed.WithBands(masked, p.Glacier.Fraction(img.Shape, img.Transform))
}
