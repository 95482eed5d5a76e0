package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glacier-albedo/modis-albedo-cli/internal/archive"
	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
	"github.com/glacier-albedo/modis-albedo-cli/internal/ren"
	"github.com/glacier-albedo/modis-albedo-cli/internal/stats"
)

type ProcessOptions struct {
	Image     string
	DEM       string
	Outline   string
	Threshold float64
	Policy    string
	Output    string
	Date      time.Time
}

// ProcessSummary describes one processed MOD09GA image.
type ProcessSummary struct {
	Quality quality.Summary
	Albedo  stats.Result
	Output  string
}

// ProcessImage runs the Ren pipeline over one MOD09GA GeoTIFF and writes the
// broadband albedo, its glacier-masked copy and the glacier fraction.
func ProcessImage(opts ProcessOptions) (*ProcessSummary, error) {
	q, err := quality.Lookup(modis.MOD09GA, opts.Policy)
	if err != nil {
		return nil, err
	}
	if opts.Threshold == 0 {
		opts.Threshold = glacier.DefaultThreshold
	}

	id := strings.TrimSuffix(filepath.Base(opts.Image), filepath.Ext(opts.Image))
	img, err := archive.ReadImage(opts.Image, id, opts.Date, modis.Bands(modis.MOD09GA))
	if err != nil {
		return nil, err
	}

	t, err := loadTerrain(opts.DEM)
	if err != nil {
		return nil, err
	}
	if t != nil && t.Slope.Shape != img.Shape {
		return nil, fmt.Errorf("%w: DEM is %s, image is %s", raster.ErrShapeMismatch, t.Slope.Shape, img.Shape)
	}

	var outline *glacier.Outline
	if opts.Outline != "" {
		if outline, err = glacier.LoadOutline(opts.Outline); err != nil {
			return nil, err
		}
		if outline, err = archive.ProjectOutline(outline, img.Projection); err != nil {
			return nil, err
		}
	}
	masker, err := glacier.NewMasker(outline, opts.Threshold, glacier.DefaultSupersample)
	if err != nil {
		return nil, err
	}

	p, err := ren.NewPipeline(q, t, masker)
	if err != nil {
		return nil, err
	}
	out, err := p.Process(img)
	if err != nil {
		return nil, err
	}

	summary := &ProcessSummary{Output: opts.Output}
	if summary.Quality, err = quality.SummarizeMOD09(img); err != nil {
		return nil, err
	}
	albedo, err := out.Select(p.AlbedoBand())
	if err != nil {
		return nil, err
	}
	if summary.Albedo, err = stats.ReduceRegion(albedo, out.Transform, stats.Options{Reducers: stats.Combined}); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := archive.WriteBands(opts.Output, out, ren.BroadbandBand, ren.BroadbandMaskedBand, glacier.FractionBand); err != nil {
		return nil, err
	}
	return summary, nil
}
