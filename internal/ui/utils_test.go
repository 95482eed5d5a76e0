package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/glacier-albedo/modis-albedo-cli/internal/comparison"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Out, color.NoColor
	Out, color.NoColor = &buf, true
	t.Cleanup(func() { Out, color.NoColor = prevOut, prevNoColor })
	return &buf
}

func TestMessages(t *testing.T) {
	buf := capture(t)
	PrintWarning("two images failed")
	PrintError("no credentials")
	PrintSuccess("saved")
	PrintInfo("starting")

	assert.Equal(t, "\nWarning:\ntwo images failed\n\nError: no credentials\n\nsaved\nstarting\n", buf.String())
}

func TestPrintReport(t *testing.T) {
	buf := capture(t)
	PrintReport(&comparison.Report{
		Images:       3,
		Observations: []comparison.Observation{{Method: "Ren"}},
		Empty:        1,
		Failures:     []error{errors.New("Ren MOD09GA_2023-07-01: corrupt")},
	})
	assert.Contains(t, buf.String(), "Images: 3, observations: 1, empty: 1, skipped: 0, failed: 1")
	assert.Contains(t, buf.String(), "corrupt")
}
