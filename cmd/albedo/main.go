package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/glacier-albedo/modis-albedo-cli/internal/config"
	"github.com/glacier-albedo/modis-albedo-cli/internal/delivery"
	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/notification"
	"github.com/glacier-albedo/modis-albedo-cli/internal/properties"
	"github.com/glacier-albedo/modis-albedo-cli/internal/quality"
	"github.com/glacier-albedo/modis-albedo-cli/internal/ui"
)

func printBanner() {
	figure1 := figure.NewFigure("MODIS", "isometric1", true)
	figure2 := figure.NewFigure("Albedo", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func rootPath() string {
	if root := properties.RootPath(); root != "" {
		return root
	}
	return "."
}

func newRunCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare Ren, MOD10A1 and MCD43A3 albedo over the configured period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := delivery.RunComparison(ctx, cfg, rootPath(), notification.FromEnv())
			if res != nil && res.Report != nil {
				ui.PrintReport(res.Report)
			}
			if err != nil {
				return err
			}
			if res.Paths.Final == "" {
				ui.PrintWarning("No observations were produced, nothing was exported.")
				return nil
			}
			ui.PrintSuccess(fmt.Sprintf("Observations saved to %s\nComparison saved to %s\nAgreement saved to %s",
				res.Paths.Observations, res.Paths.Final, res.Paths.Agreement))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "run configuration file")
	return cmd
}

func newProcessCommand() *cobra.Command {
	var (
		opts delivery.ProcessOptions
		date string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the Ren method on one MOD09GA GeoTIFF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				d, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", date)
				}
				opts.Date = d
			}
			summary, err := delivery.ProcessImage(opts)
			if err != nil {
				return err
			}
			ui.PrintInfo(summary.Quality.String())
			a := summary.Albedo
			ui.PrintSuccess(fmt.Sprintf("Albedo mean %.4f (std %.4f, min %.4f, max %.4f) over %d pixels, saved to %s",
				a.Mean, a.StdDev, a.Min, a.Max, a.Count, summary.Output))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Image, "image", "", "MOD09GA GeoTIFF in archive layer order")
	cmd.Flags().StringVar(&opts.DEM, "dem", "", "elevation GeoTIFF on the image grid")
	cmd.Flags().StringVar(&opts.Outline, "glacier", "", "glacier outline GeoJSON (WGS84)")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", glacier.DefaultThreshold, "minimum glacier fraction")
	cmd.Flags().StringVar(&opts.Policy, "policy", quality.MOD09Standard().Name, "MOD09GA quality policy")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "albedo.tif", "output GeoTIFF")
	cmd.Flags().StringVar(&date, "date", "", "acquisition date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("image")
	return cmd
}

func newPoliciesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List quality policy presets",
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintInfo(string(modis.MOD09GA))
			for _, p := range quality.MOD09Presets() {
				fmt.Printf("  %-18s %s\n", p.Name, p)
			}
			ui.PrintInfo(string(modis.MOD10A1))
			for _, p := range quality.MOD10Presets() {
				fmt.Printf("  %-18s %s\n", p.Name, p)
			}
			ui.PrintInfo(string(modis.MCD43A3))
			for _, p := range quality.MCD43Presets() {
				fmt.Printf("  %-18s %s\n", p.Name, p)
			}
		},
	}
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default run configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
				return err
			}
			ui.PrintSuccess("Configuration written to " + path)
			return nil
		},
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	defer func() {
		if r := recover(); r != nil {
			ui.PrintError(fmt.Sprintf("PANIC: %v", r))
			msg := fmt.Sprintf("MODIS albedo CLI panic:\n\n%v\n\nStack trace:\n%s", r, debug.Stack())
			if err := notification.FromEnv().Error(msg); err != nil {
				ui.PrintError("Failed to send notification: " + err.Error())
			}
			os.Exit(2)
		}
	}()

	root := &cobra.Command{
		Use:           "albedo",
		Short:         "Glacier albedo from MODIS: Ren et al. against MOD10A1 and MCD43A3",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			printBanner()
		},
	}
	root.AddCommand(newRunCommand(), newProcessCommand(), newPoliciesCommand(), newInitCommand())

	if err := root.ExecuteContext(context.Background()); err != nil {
		ui.PrintError(strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
