package comparison

import (
	"sort"
	"time"

	"github.com/glacier-albedo/modis-albedo-cli/internal/archive"
	"github.com/glacier-albedo/modis-albedo-cli/internal/stats"
)

// Observation is the region statistics of one method's albedo over one image.
type Observation struct {
	Date        string    `csv:"date" json:"date"`
	Year        int       `csv:"year" json:"year"`
	Month       int       `csv:"month" json:"month"`
	DayOfYear   int       `csv:"day_of_year" json:"day_of_year"`
	Method      string    `csv:"method" json:"method"`
	Image       string    `csv:"image_id" json:"image_id"`
	Mean        float64   `csv:"albedo_mean" json:"albedo_mean"`
	StdDev      float64   `csv:"albedo_std" json:"albedo_std"`
	Min         float64   `csv:"albedo_min" json:"albedo_min"`
	Max         float64   `csv:"albedo_max" json:"albedo_max"`
	PixelCount  int       `csv:"pixel_count" json:"pixel_count"`
	Scale       float64   `csv:"scale_m" json:"scale_m"`
	Approximate bool      `csv:"approximate" json:"approximate"`
	Acquired    time.Time `csv:"-" json:"acquired"`
}

func newObservation(method string, sc archive.Scene, res stats.Result) Observation {
	return Observation{
		Date:        sc.Date.Format(time.DateOnly),
		Year:        sc.Date.Year(),
		Month:       int(sc.Date.Month()),
		DayOfYear:   sc.Date.YearDay(),
		Method:      method,
		Image:       sc.Name(),
		Mean:        res.Mean,
		StdDev:      res.StdDev,
		Min:         res.Min,
		Max:         res.Max,
		PixelCount:  res.Count,
		Scale:       res.Scale,
		Approximate: res.Approximate,
		Acquired:    sc.Date,
	}
}

// Empty reports whether no pixel survived masking.
func (o Observation) Empty() bool { return o.PixelCount == 0 }

// SortObservations orders by acquisition date, then method name.
func SortObservations(obs []Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].Acquired.Equal(obs[j].Acquired) {
			return obs[i].Acquired.Before(obs[j].Acquired)
		}
		return obs[i].Method < obs[j].Method
	})
}
