// Package final merges per-method observations into one row per date and
// exports both tables as CSV.
package final

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/glacier-albedo/modis-albedo-cli/internal/comparison"
)

const (
	RenMethod     = "Ren"
	MOD10A1Method = "MOD10A1"
	MCD43A3Method = "MCD43A3"
)

// Value is an optional number; absent values export as empty cells.
type Value struct {
	V  float64
	OK bool
}

func Some(v float64) Value { return Value{V: v, OK: true} }

func (v Value) MarshalCSV() (string, error) {
	if !v.OK {
		return "", nil
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64), nil
}

func (v *Value) UnmarshalCSV(s string) error {
	if s == "" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

func diff(a, b Value) Value {
	if !a.OK || !b.OK {
		return Value{}
	}
	return Some(a.V - b.V)
}

// FinalData is one acquisition date with every method's mean albedo.
type FinalData struct {
	Date            string `csv:"date"`
	Year            int    `csv:"year"`
	DayOfYear       int    `csv:"day_of_year"`
	Ren             Value  `csv:"ren_albedo"`
	MOD10A1         Value  `csv:"mod10a1_albedo"`
	MCD43A3         Value  `csv:"mcd43a3_albedo"`
	RenMinusMOD10A1 Value  `csv:"ren_minus_mod10a1"`
	RenMinusMCD43A3 Value  `csv:"ren_minus_mcd43a3"`
	Methods         int    `csv:"method_count"`
}

// CreateFinalDataset merges observations by date, sorted ascending.
func CreateFinalDataset(obs []comparison.Observation) []FinalData {
	byDate := map[string]*FinalData{}
	for _, o := range obs {
		row, ok := byDate[o.Date]
		if !ok {
			row = &FinalData{Date: o.Date, Year: o.Year, DayOfYear: o.DayOfYear}
			byDate[o.Date] = row
		}
		switch o.Method {
		case RenMethod:
			row.Ren = Some(o.Mean)
		case MOD10A1Method:
			row.MOD10A1 = Some(o.Mean)
		case MCD43A3Method:
			row.MCD43A3 = Some(o.Mean)
		default:
			continue
		}
		row.Methods++
	}

	rows := make([]FinalData, 0, len(byDate))
	for _, row := range byDate {
		row.RenMinusMOD10A1 = diff(row.Ren, row.MOD10A1)
		row.RenMinusMCD43A3 = diff(row.Ren, row.MCD43A3)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

// Agreement summarises Ren against one reference over the dates both observed.
type Agreement struct {
	Reference   string  `csv:"reference"`
	N           int     `csv:"n"`
	Bias        float64 `csv:"bias"`
	RMSE        float64 `csv:"rmse"`
	Correlation float64 `csv:"correlation"`
}

func Compare(rows []FinalData) []Agreement {
	pick := map[string]func(FinalData) Value{
		MOD10A1Method: func(r FinalData) Value { return r.MOD10A1 },
		MCD43A3Method: func(r FinalData) Value { return r.MCD43A3 },
	}
	var out []Agreement
	for _, ref := range []string{MOD10A1Method, MCD43A3Method} {
		var xs, ys, d []float64
		for _, r := range rows {
			y := pick[ref](r)
			if !r.Ren.OK || !y.OK {
				continue
			}
			xs = append(xs, r.Ren.V)
			ys = append(ys, y.V)
			d = append(d, r.Ren.V-y.V)
		}
		a := Agreement{Reference: ref, N: len(d)}
		if a.N > 0 {
			a.Bias = stat.Mean(d, nil)
			var sq float64
			for _, v := range d {
				sq += v * v
			}
			a.RMSE = math.Sqrt(sq / float64(a.N))
		}
		if a.N > 1 {
			a.Correlation = stat.Correlation(xs, ys, nil)
		}
		out = append(out, a)
	}
	return out
}

func save[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Paths names the files written by Export.
type Paths struct {
	Observations string
	Final        string
	Agreement    string
}

// Export writes <stem>_observations.csv, <stem>_final.csv and
// <stem>_agreement.csv under dir.
func Export(dir, stem string, obs []comparison.Observation) (Paths, error) {
	if len(obs) == 0 {
		return Paths{}, fmt.Errorf("no observations to save")
	}
	p := Paths{
		Observations: filepath.Join(dir, stem+"_observations.csv"),
		Final:        filepath.Join(dir, stem+"_final.csv"),
		Agreement:    filepath.Join(dir, stem+"_agreement.csv"),
	}
	if err := save(p.Observations, obs); err != nil {
		return Paths{}, err
	}
	rows := CreateFinalDataset(obs)
	if err := save(p.Final, rows); err != nil {
		return Paths{}, err
	}
	if err := save(p.Agreement, Compare(rows)); err != nil {
		return Paths{}, err
	}
	return p, nil
}

// GetSavedFinalData reads a table written by Export.
func GetSavedFinalData(path string) ([]FinalData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open final data file: %w", err)
	}
	defer file.Close()

	var rows []FinalData
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to read final data: %w", err)
	}
	return rows, nil
}
