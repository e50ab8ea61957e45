// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litharvest/internal/harvest"
	"github.com/pdiddy/litharvest/internal/input/robot"
	"github.com/pdiddy/litharvest/internal/match"
	"github.com/pdiddy/litharvest/internal/screen"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect result links from the search page on screen",
	Long: `Harvest finds every result mark on the visible search-results page by
template matching, copies each result's link through its context menu, then
moves to the next page. It visits a fixed number of pages and writes the links
once at the end, one per line. The pointer and clipboard are in use for the
whole run; an interrupted or failed run writes nothing.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("template", "", "mark template image (PNG, JPEG or WebP)")
	harvestCmd.Flags().String("out", "links.txt", "output file for harvested links")
	harvestCmd.Flags().Int("pages", 0, "number of result pages to visit (default 50)")
	harvestCmd.Flags().Float64("threshold", 0, "minimum match score (default 0.8)")
	harvestCmd.Flags().String("debug-dir", "", "directory for screenshots of suspected capture errors")
	harvestCmd.Flags().Int("display", 0, "index of the captured display")
	harvestCmd.MarkFlagRequired("template")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	pc, err := pipelineConfig()
	if err != nil {
		return err
	}
	cfg := pc.Harvest
	flags := cmd.Flags()
	flagOverride(flags, "pages", flags.GetInt, &cfg.MaxPages)
	flagOverride(flags, "threshold", flags.GetFloat64, &cfg.Threshold)
	flagOverride(flags, "debug-dir", flags.GetString, &cfg.DebugDir)
	flagOverride(flags, "display", flags.GetInt, &cfg.Display)

	templatePath, _ := flags.GetString("template")
	outPath, _ := flags.GetString("out")

	tpl, err := match.LoadTemplate(templatePath)
	if err != nil {
		return err
	}

	capturer := screen.New()
	if _, err := capturer.Geometry(cfg.Display); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	h := harvest.New(cfg, capturer, robot.New(), tpl, logger)
	res, err := h.Run(ctx)
	if err != nil {
		return fmt.Errorf("harvest aborted, no links written: %w", err)
	}

	if err := harvest.WriteLinks(outPath, res.Links); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Harvested %d links from %d pages (%d duplicates dropped) to %s\n",
		len(res.Links), len(res.Pages), res.Dropped, outPath)
	return nil
}
