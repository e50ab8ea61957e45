// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litharvest/internal/classify"
	"github.com/pdiddy/litharvest/internal/export"
	"github.com/pdiddy/litharvest/internal/library"
	"github.com/pdiddy/litharvest/internal/wos"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Screen exported abstracts with a local language model",
	Long: `Classify reads a Web of Science export, drops rows without a title, DOI or
abstract, asks the model whether each abstract is about the topic and writes
the records with is_agtech, agtech_sentence and agtech_reason columns.
Records the model could not classify are kept with is_agtech=Error; the
command then exits non-zero after writing the output.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().String("input", "", "Web of Science export (.txt tab-delimited or .csv)")
	classifyCmd.Flags().String("out", "processed_data.csv", "output CSV file")
	classifyCmd.Flags().String("model", "", "model name (default llama3.1:8b)")
	classifyCmd.Flags().String("host", "", "model server URL (default http://localhost:11434)")
	classifyCmd.Flags().String("topic", "", "screening topic (default \"agricultural technology\")")
	classifyCmd.Flags().Int("concurrency", 0, "abstracts classified at once (default 1)")
	classifyCmd.Flags().Bool("sync", false, "store verdicts in the local library")
	classifyCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	pc, err := pipelineConfig()
	if err != nil {
		return err
	}
	cfg := pc.Classify
	flags := cmd.Flags()
	flagOverride(flags, "model", flags.GetString, &cfg.Model)
	flagOverride(flags, "host", flags.GetString, &cfg.Host)
	flagOverride(flags, "topic", flags.GetString, &cfg.Topic)
	flagOverride(flags, "concurrency", flags.GetInt, &cfg.Concurrency)

	inPath, _ := flags.GetString("input")
	outPath, _ := flags.GetString("out")

	records, stats, err := wos.ReadFile(inPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Read %d records, %d complete, %d dropped (missing title, DOI or abstract)\n",
		stats.Total, stats.Complete, stats.Dropped())

	backend, err := classify.NewOllamaBackend(cfg.Host, cfg.Model, nil)
	if err != nil {
		return err
	}
	c := &classify.Classifier{Backend: backend, Config: cfg, Log: logger}

	ctx, stop := signalContext()
	defer stop()

	out, summary := c.ClassifyAll(ctx, records, os.Stderr)

	err = export.WriteFile(outPath, func(w io.Writer) error {
		return export.WriteRecords(w, out)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Classification summary: %d yes, %d no, %d failed (total: %d) -> %s\n",
		summary.Yes, summary.No, summary.Failed, summary.Total(), outPath)

	if sync, _ := flags.GetBool("sync"); sync {
		store, err := library.Open(pc.LibraryDir)
		if err != nil {
			return err
		}
		defer store.Close()
		skipped, err := store.SaveClassifications(ctx, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d verdicts in %s (%d without DOI skipped)\n", len(out)-skipped, pc.LibraryDir, skipped)
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d abstract(s) could not be classified", summary.Failed)
	}
	return nil
}
