// Package delivery wires configuration, archive, methods and export into the
// CLI's commands.
package delivery

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/glacier-albedo/modis-albedo-cli/internal/archive"
	"github.com/glacier-albedo/modis-albedo-cli/internal/cache"
	"github.com/glacier-albedo/modis-albedo-cli/internal/comparison"
	"github.com/glacier-albedo/modis-albedo-cli/internal/config"
	"github.com/glacier-albedo/modis-albedo-cli/internal/final"
	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/notification"
	"github.com/glacier-albedo/modis-albedo-cli/internal/properties"
	"github.com/glacier-albedo/modis-albedo-cli/internal/reference"
	"github.com/glacier-albedo/modis-albedo-cli/internal/ren"
	"github.com/glacier-albedo/modis-albedo-cli/internal/terrain"
)

type Result struct {
	Report *comparison.Report

	// Paths is zero when nothing was exported.
	Paths final.Paths
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// RunComparison runs every enabled method over the configured period and
// exports the observations. Failures are reported through notifier.
func RunComparison(ctx context.Context, cfg *config.Config, root string, notifier *notification.Notifier) (*Result, error) {
	res, err := runComparison(ctx, cfg, root)
	if err != nil {
		if nerr := notifier.Error(err.Error()); nerr != nil {
			log.Printf("failed to send notification: %v", nerr)
		}
		return res, err
	}

	report := res.Report
	if len(report.Failures) > 0 {
		msg := fmt.Sprintf("%d of %d images failed", len(report.Failures), report.Images)
		if nerr := notifier.Warning(msg); nerr != nil {
			log.Printf("failed to send notification: %v", nerr)
		}
	}
	msg := fmt.Sprintf("%d observations from %d images", len(report.Observations), report.Images)
	if res.Paths.Final != "" {
		msg += fmt.Sprintf(", saved to %s", res.Paths.Final)
	}
	if nerr := notifier.Success(msg); nerr != nil {
		log.Printf("failed to send notification: %v", nerr)
	}
	return res, nil
}

func runComparison(ctx context.Context, cfg *config.Config, root string) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	filter, err := cfg.TimeFilter()
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg, root)
	if err != nil {
		return nil, err
	}

	outline, err := loadOutline(ctx, cfg, root, store, filter)
	if err != nil {
		return nil, err
	}
	masker, err := glacier.NewMasker(outline, cfg.Glacier.Threshold, cfg.Glacier.Supersample)
	if err != nil {
		return nil, err
	}

	t, err := loadTerrain(resolve(root, cfg.Terrain.DEM))
	if err != nil {
		return nil, err
	}
	tasks, err := buildTasks(cfg, t, masker)
	if err != nil {
		return nil, err
	}

	runner := &comparison.Runner{
		Source:    store,
		Filter:    filter,
		Workers:   cfg.Processing.Workers,
		Glacier:   masker,
		MinPixels: cfg.Glacier.MinPixels,
		MarkEmpty: cfg.Processing.MarkEmpty,
		CacheTag:  cfg.Tag(),
	}
	if outline != nil {
		runner.Region = outline.Bound()
	}
	if cfg.Processing.Cache {
		runner.Cache = cache.NewFileCache[comparison.Observation](root, "observations")
	}

	report, err := runner.Run(ctx, tasks)
	res := &Result{Report: report}
	if err != nil {
		return res, err
	}
	if len(report.Observations) == 0 {
		log.Printf("no observations for %s to %s", cfg.Period.Start, cfg.Period.End)
		return res, nil
	}

	res.Paths, err = final.Export(resolve(root, cfg.Export.OutputDir), cfg.Export.Name, report.Observations)
	if err != nil {
		return res, err
	}
	return res, nil
}

// newStore talks to the archive when credentials are present, and otherwise
// only reads tiles already on disk.
func newStore(ctx context.Context, cfg *config.Config, root string) (*archive.Store, error) {
	var fetcher archive.Fetcher
	if properties.ArchiveClientID() != "" {
		client, err := archive.NewClient(ctx, archive.ClientConfig{
			ClientID:     properties.ArchiveClientID(),
			ClientSecret: properties.ArchiveClientSecret(),
			TokenURL:     properties.ArchiveTokenURL(),
			ProcessURL:   properties.ArchiveProcessURL(),
			Retries:      cfg.Archive.Retries,
			Wait:         cfg.Archive.Wait,
		})
		if err != nil {
			return nil, err
		}
		fetcher = client
	} else {
		log.Printf("no archive credentials, using local images only")
	}
	return archive.NewStore(root, fetcher, cfg.Bound(), cfg.Export.ReferenceScale)
}

// loadOutline reads the glacier outline and reprojects it into the grid of
// the first available image. MODIS products share one projection.
func loadOutline(ctx context.Context, cfg *config.Config, root string, store *archive.Store, filter archive.TimeFilter) (*glacier.Outline, error) {
	if cfg.Glacier.Outline == "" {
		return nil, nil
	}
	outline, err := glacier.LoadOutline(resolve(root, cfg.Glacier.Outline))
	if err != nil {
		return nil, err
	}

	for _, m := range cfg.Methods {
		product, _ := config.Product(m)
		scenes, err := store.Scenes(ctx, product, filter)
		if err != nil {
			return nil, err
		}
		if len(scenes) == 0 {
			continue
		}
		wkt, err := archive.Projection(scenes[0].Path)
		if err != nil {
			return nil, err
		}
		return archive.ProjectOutline(outline, wkt)
	}
	return outline, nil
}

func loadTerrain(path string) (*terrain.Terrain, error) {
	if path == "" {
		return nil, nil
	}
	dem, gt, err := archive.ReadDEM(path)
	if err != nil {
		return nil, err
	}
	t, err := terrain.Derive(dem, gt[1], -gt[5])
	if err != nil {
		return nil, fmt.Errorf("failed to derive terrain from %s: %w", path, err)
	}
	return &t, nil
}

func buildTasks(cfg *config.Config, t *terrain.Terrain, masker *glacier.Masker) ([]comparison.Task, error) {
	var tasks []comparison.Task
	for _, m := range cfg.Methods {
		product, _ := config.Product(m)
		q, err := cfg.Decoder(product)
		if err != nil {
			return nil, err
		}

		var method comparison.Method
		switch product {
		case modis.MOD09GA:
			method, err = ren.NewPipeline(q, t, masker)
		case modis.MOD10A1:
			method, err = reference.NewMOD10A1(q, masker)
		case modis.MCD43A3:
			method, err = reference.NewMCD43A3(q, masker)
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, comparison.Task{Method: method, Stats: cfg.StatsOptions(product)})
	}
	return tasks, nil
}
