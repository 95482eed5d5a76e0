package final

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacier-albedo/modis-albedo-cli/internal/comparison"
)

func observations() []comparison.Observation {
	return []comparison.Observation{
		{Date: "2023-07-02", Year: 2023, DayOfYear: 183, Method: RenMethod, Mean: 0.50, PixelCount: 10},
		{Date: "2023-07-02", Year: 2023, DayOfYear: 183, Method: MCD43A3Method, Mean: 0.45, PixelCount: 8},
		{Date: "2023-07-01", Year: 2023, DayOfYear: 182, Method: RenMethod, Mean: 0.60, PixelCount: 10},
		{Date: "2023-07-01", Year: 2023, DayOfYear: 182, Method: MOD10A1Method, Mean: 0.70, PixelCount: 9},
		{Date: "2023-07-01", Year: 2023, DayOfYear: 182, Method: MCD43A3Method, Mean: 0.50, PixelCount: 9},
	}
}

func TestCreateFinalDataset(t *testing.T) {
	rows := CreateFinalDataset(observations())
	require.Len(t, rows, 2)

	assert.Equal(t, "2023-07-01", rows[0].Date)
	assert.Equal(t, 3, rows[0].Methods)
	assert.InDelta(t, -0.10, rows[0].RenMinusMOD10A1.V, 1e-12)
	assert.InDelta(t, 0.10, rows[0].RenMinusMCD43A3.V, 1e-12)

	assert.False(t, rows[1].MOD10A1.OK)
	assert.False(t, rows[1].RenMinusMOD10A1.OK)
	assert.InDelta(t, 0.05, rows[1].RenMinusMCD43A3.V, 1e-12)
}

func TestCompare(t *testing.T) {
	agreement := Compare(CreateFinalDataset(observations()))
	require.Len(t, agreement, 2)

	mod10 := agreement[0]
	assert.Equal(t, MOD10A1Method, mod10.Reference)
	assert.Equal(t, 1, mod10.N)
	assert.InDelta(t, -0.10, mod10.Bias, 1e-12)
	assert.InDelta(t, 0.10, mod10.RMSE, 1e-12)
	assert.Zero(t, mod10.Correlation)

	mcd43 := agreement[1]
	assert.Equal(t, 2, mcd43.N)
	assert.InDelta(t, 0.075, mcd43.Bias, 1e-12)
	assert.InDelta(t, 1.0, mcd43.Correlation, 1e-9)
}

func TestExportAndReadBack(t *testing.T) {
	dir := t.TempDir()
	paths, err := Export(dir, "run", observations())
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.Observations)
	require.NoError(t, err)
	header := strings.SplitN(string(raw), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(header, "date,year,month,day_of_year,method"))

	rows, err := GetSavedFinalData(paths.Final)
	require.NoError(t, err)
	assert.Equal(t, CreateFinalDataset(observations()), rows)
	assert.FileExists(t, paths.Agreement)
}

func TestExportRejectsEmpty(t *testing.T) {
	_, err := Export(t.TempDir(), "run", nil)
	assert.Error(t, err)
}
