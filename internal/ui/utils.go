package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/glacier-albedo/modis-albedo-cli/internal/comparison"
)

// Out receives every message.
var Out io.Writer = color.Output

var (
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgBlue)
)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	warning.Fprintf(Out, "\nWarning:\n%s\n", message)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	failure.Fprintf(Out, "\nError: %s\n", message)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	success.Fprintf(Out, "\n%s\n", message)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	info.Fprintf(Out, "%s\n", message)
}

// PrintReport prints a run's totals and per-image failures.
func PrintReport(r *comparison.Report) {
	PrintInfo(fmt.Sprintf("Images: %d, observations: %d, empty: %d, skipped: %d, failed: %d",
		r.Images, len(r.Observations), r.Empty, r.Skipped, len(r.Failures)))
	for _, err := range r.Failures {
		failure.Fprintf(Out, "  %v\n", err)
	}
}
