// Package comparison runs every albedo method over its product's archive and
// reduces each image to region statistics.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/paulmach/orb"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/glacier-albedo/modis-albedo-cli/internal/archive"
	"github.com/glacier-albedo/modis-albedo-cli/internal/cache"
	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
	"github.com/glacier-albedo/modis-albedo-cli/internal/stats"
)

var ErrAllFailed = errors.New("every image failed")

// Method turns one product image into an image carrying an albedo band.
type Method interface {
	Name() string
	Product() modis.Product
	AlbedoBand() string
	Process(img raster.Image) (raster.Image, error)
}

// Source lists and loads a product's images.
type Source interface {
	Scenes(ctx context.Context, product modis.Product, filter archive.TimeFilter) ([]archive.Scene, error)
	Load(sc archive.Scene) (raster.Image, error)
	MarkInvalid(sc archive.Scene) error
}

// Task pairs a method with the aggregation settings of its product.
type Task struct {
	Method Method
	Stats  stats.Options
}

type Runner struct {
	Source  Source
	Filter  archive.TimeFilter
	Workers int

	// Region restricts aggregation, in image coordinates. Nil means the whole tile.
	Region orb.Geometry

	// Glacier, when set, skips images where the outline covers fewer than
	// MinPixels pixels.
	Glacier   *glacier.Masker
	MinPixels int

	// MarkEmpty ledgers images left with no valid pixel.
	MarkEmpty bool
	Cache     cache.Service[Observation]

	// CacheTag distinguishes cached results of differently configured runs.
	CacheTag string
	Quiet    bool
}

// Report collects what a run produced. Empty observations are counted, not kept.
type Report struct {
	Observations []Observation
	Images       int
	Empty        int
	Skipped      int
	Failures     []error
}

func (r *Report) Failed() bool {
	return len(r.Failures) > 0 && len(r.Failures) == r.Images
}

type outcome int

const (
	observed outcome = iota
	empty
	skipped
)

// Run processes every task concurrently. Per-image failures are collected in
// the report; Run itself fails only on cancellation, when listing a product
// fails, or when every image failed.
func (r *Runner) Run(ctx context.Context, tasks []Task) (*Report, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu     sync.Mutex
		report = &Report{}
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			scenes, err := r.Source.Scenes(ctx, task.Method.Product(), r.Filter)
			if err != nil {
				return fmt.Errorf("%s: failed to list %s images: %w", task.Method.Name(), task.Method.Product(), err)
			}

			bar := r.progress(len(scenes), task.Method.Name())
			wp := workerpool.New(workers)
			for _, sc := range scenes {
				wp.Submit(func() {
					if ctx.Err() != nil {
						return
					}
					obs, out, err := r.observe(task, sc)

					mu.Lock()
					defer mu.Unlock()
					report.Images++
					switch {
					case err != nil:
						log.Printf("%s %s: %v", task.Method.Name(), sc.Name(), err)
						report.Failures = append(report.Failures, fmt.Errorf("%s %s: %w", task.Method.Name(), sc.Name(), err))
					case out == skipped:
						report.Skipped++
					case out == empty:
						report.Empty++
					default:
						report.Observations = append(report.Observations, obs)
					}
					bar.Add(1)
				})
			}
			wp.StopWait()
			bar.Finish()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	SortObservations(report.Observations)
	if report.Failed() {
		return report, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(report.Failures...))
	}
	return report, nil
}

func (r *Runner) progress(n int, name string) *progressbar.ProgressBar {
	if r.Quiet {
		return progressbar.DefaultSilent(int64(n), name)
	}
	return progressbar.Default(int64(n), name)
}

func (r *Runner) observe(task Task, sc archive.Scene) (Observation, outcome, error) {
	name := task.Method.Name()
	var key string
	if r.Cache != nil {
		key = r.Cache.Key(r.CacheTag, name, sc.Name(), task.Stats.Scale, task.Stats.MaxPixels, task.Stats.BestEffort)
		if obs, ok := r.Cache.Get(key); ok {
			if obs.Empty() {
				return obs, empty, nil
			}
			return obs, observed, nil
		}
	}

	img, err := r.Source.Load(sc)
	if err != nil {
		return Observation{}, 0, err
	}
	if r.Glacier != nil && !r.Glacier.Passthrough() && !r.Glacier.Sufficient(img.Shape, img.Transform, r.MinPixels) {
		log.Printf("%s %s: glacier covers fewer than %d pixels, skipping", name, sc.Name(), r.MinPixels)
		return Observation{}, skipped, nil
	}

	out, err := task.Method.Process(img)
	if errors.Is(err, raster.ErrMissingBand) {
		log.Printf("%s %s: skipping: %v", name, sc.Name(), err)
		return Observation{}, skipped, nil
	}
	if err != nil {
		return Observation{}, 0, err
	}
	albedo, err := out.Select(task.Method.AlbedoBand())
	if err != nil {
		return Observation{}, 0, err
	}

	opts := task.Stats
	if opts.Region == nil {
		opts.Region = r.Region
	}
	res, err := stats.ReduceRegion(albedo, out.Transform, opts)
	if err != nil {
		return Observation{}, 0, err
	}

	obs := newObservation(name, sc, res)
	if r.Cache != nil {
		if err := r.Cache.Set(key, obs); err != nil {
			log.Printf("failed to cache %s %s: %v", name, sc.Name(), err)
		}
	}
	if obs.Empty() {
		if r.MarkEmpty {
			if err := r.Source.MarkInvalid(sc); err != nil {
				log.Printf("failed to mark %s invalid: %v", sc.Name(), err)
			}
		}
		return obs, empty, nil
	}
	return obs, observed, nil
}
