// Package config loads the YAML run file and checks it before any image is
// processed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/glacier-albedo/modis-albedo-cli/internal/archive"
	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/stats"
)

// Method names accepted in Methods.
const (
	MethodRen     = "ren"
	MethodMOD10A1 = "mod10a1"
	MethodMCD43A3 = "mcd43a3"
)

var methodProducts = map[string]modis.Product{
	MethodRen:     modis.MOD09GA,
	MethodMOD10A1: modis.MOD10A1,
	MethodMCD43A3: modis.MCD43A3,
}

// Config represents one comparison run.
type Config struct {
	Period struct {
		// Start and End are inclusive YYYY-MM-DD dates.
		Start string `yaml:"start"`
		End   string `yaml:"end"`

		// MeltSeason keeps only June to September.
		MeltSeason bool `yaml:"meltSeason"`
	} `yaml:"period"`

	Methods []string `yaml:"methods"`

	// Quality names a preset per product.
	Quality struct {
		MOD09GA string `yaml:"mod09ga"`
		MOD10A1 string `yaml:"mod10a1"`
		MCD43A3 string `yaml:"mcd43a3"`

		// CustomMOD09 replaces the MOD09GA preset when set.
		CustomMOD09 *quality.MOD09Policy `yaml:"customMod09,omitempty"`
	} `yaml:"quality"`

	Glacier struct {
		Outline     string  `yaml:"outline"`
		Threshold   float64 `yaml:"threshold"`
		Supersample int     `yaml:"supersample"`
		MinPixels   int     `yaml:"minPixels"`
	} `yaml:"glacier"`

	Terrain struct {
		DEM string `yaml:"dem"`
	} `yaml:"terrain"`

	Archive struct {
		// Bound is west, south, east, north in degrees.
		Bound   [4]float64    `yaml:"bound"`
		Retries int           `yaml:"retries"`
		Wait    time.Duration `yaml:"wait"`
	} `yaml:"archive"`

	Export struct {
		RenScale           float64 `yaml:"renScale"`
		ReferenceScale     float64 `yaml:"referenceScale"`
		RenMaxPixels       int     `yaml:"renMaxPixels"`
		ReferenceMaxPixels int     `yaml:"referenceMaxPixels"`
		BestEffort         bool    `yaml:"bestEffort"`
		OutputDir          string  `yaml:"outputDir"`
		Name               string  `yaml:"name"`
	} `yaml:"export"`

	Processing struct {
		Workers   int  `yaml:"workers"`
		Cache     bool `yaml:"cache"`
		MarkEmpty bool `yaml:"markEmpty"`
	} `yaml:"processing"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Period.MeltSeason = true
	cfg.Methods = []string{MethodRen, MethodMOD10A1, MethodMCD43A3}

	cfg.Quality.MOD09GA = quality.MOD09Standard().Name
	cfg.Quality.MOD10A1 = quality.MOD10Standard().Name
	cfg.Quality.MCD43A3 = quality.MCD43Standard().Name

	cfg.Glacier.Threshold = glacier.DefaultThreshold
	cfg.Glacier.Supersample = glacier.DefaultSupersample
	cfg.Glacier.MinPixels = glacier.DefaultMinPixels

	cfg.Archive.Retries = 10
	cfg.Archive.Wait = 5 * time.Second

	cfg.Export.RenScale = 463
	cfg.Export.ReferenceScale = 500
	cfg.Export.RenMaxPixels = 1e9
	cfg.Export.ReferenceMaxPixels = 1e8
	cfg.Export.BestEffort = true
	cfg.Export.OutputDir = "data/result"
	cfg.Export.Name = "albedo_comparison"

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.Cache = true
	cfg.Processing.MarkEmpty = true
	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate rejects unknown methods and policies and out of range values.
// Policy errors match quality.ErrInvalidQualityPolicy.
func (c *Config) Validate() error {
	if _, err := c.TimeFilter(); err != nil {
		return err
	}
	if len(c.Methods) == 0 {
		return fmt.Errorf("no methods enabled")
	}
	for _, m := range c.Methods {
		p, ok := methodProducts[m]
		if !ok {
			return fmt.Errorf("unknown method %q", m)
		}
		if _, err := c.Decoder(p); err != nil {
			return err
		}
	}
	if c.Glacier.Threshold <= 0 || c.Glacier.Threshold > 1 {
		return fmt.Errorf("%w: %g", glacier.ErrInvalidThreshold, c.Glacier.Threshold)
	}
	if c.Glacier.Supersample < 1 {
		return fmt.Errorf("glacier supersample must be at least 1, got %d", c.Glacier.Supersample)
	}
	if c.Glacier.MinPixels < 0 {
		return fmt.Errorf("glacier minimum pixel count must not be negative")
	}
	if c.Export.RenScale <= 0 || c.Export.ReferenceScale <= 0 {
		return fmt.Errorf("export scales must be positive")
	}
	if c.Export.RenMaxPixels <= 0 || c.Export.ReferenceMaxPixels <= 0 {
		return fmt.Errorf("maxPixels must be positive")
	}
	b := c.Bound()
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return fmt.Errorf("archive bound %v is inverted", c.Archive.Bound)
	}
	return nil
}

func (c *Config) TimeFilter() (archive.TimeFilter, error) {
	start, err := time.Parse(time.DateOnly, c.Period.Start)
	if err != nil {
		return archive.TimeFilter{}, fmt.Errorf("invalid start date %q: %w", c.Period.Start, err)
	}
	end, err := time.Parse(time.DateOnly, c.Period.End)
	if err != nil {
		return archive.TimeFilter{}, fmt.Errorf("invalid end date %q: %w", c.Period.End, err)
	}
	f := archive.TimeFilter{Start: start, End: end, MeltSeason: c.Period.MeltSeason}
	return f, f.Validate()
}

// Product returns the product a method reads.
func Product(method string) (modis.Product, bool) {
	p, ok := methodProducts[method]
	return p, ok
}

// Decoder resolves the configured quality policy of product.
func (c *Config) Decoder(product modis.Product) (quality.Decoder, error) {
	switch product {
	case modis.MOD09GA:
		if c.Quality.CustomMOD09 != nil {
			p := *c.Quality.CustomMOD09
			if p.Name == "" {
				p.Name = "custom"
			}
			if err := p.Validate(); err != nil {
				return nil, err
			}
			return p, nil
		}
		return quality.Lookup(product, c.Quality.MOD09GA)
	case modis.MOD10A1:
		return quality.Lookup(product, c.Quality.MOD10A1)
	case modis.MCD43A3:
		return quality.Lookup(product, c.Quality.MCD43A3)
	}
	return nil, fmt.Errorf("%w: no policies for product %q", quality.ErrInvalidQualityPolicy, product)
}

// StatsOptions returns the aggregation settings of product.
func (c *Config) StatsOptions(product modis.Product) stats.Options {
	opts := stats.Options{
		Reducers:   stats.Combined,
		Scale:      c.Export.ReferenceScale,
		MaxPixels:  c.Export.ReferenceMaxPixels,
		BestEffort: c.Export.BestEffort,
	}
	if product == modis.MOD09GA {
		opts.Scale = c.Export.RenScale
		opts.MaxPixels = c.Export.RenMaxPixels
	}
	return opts
}

func (c *Config) Bound() orb.Bound {
	b := c.Archive.Bound
	return orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
}

// Tag identifies the settings that change a method's observations.
func (c *Config) Tag() string {
	mod09 := c.Quality.MOD09GA
	if c.Quality.CustomMOD09 != nil {
		mod09 = c.Quality.CustomMOD09.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%g|%d|%s",
		mod09, c.Quality.MOD10A1, c.Quality.MCD43A3,
		c.Glacier.Outline, c.Glacier.Threshold, c.Glacier.Supersample, c.Terrain.DEM)
}
