// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litharvest/internal/acquire"
	"github.com/pdiddy/litharvest/internal/library"
	"github.com/pdiddy/litharvest/internal/zotero"
)

var _ acquire.Source = (*zotero.Client)(nil)

var acquireCmd = &cobra.Command{
	Use:   "acquire <collection-key>",
	Short: "Download the PDF attachments of a Zotero collection tree",
	Long: `Acquire downloads every PDF attachment in the collection and its
sub-collections to <papers-dir>/raw/<key>.pdf and writes a metadata record to
<papers-dir>/metadata/<key>.yaml. Existing PDFs are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	acquireCmd.Flags().String("papers-dir", "", "base directory for papers (default papers)")
	acquireCmd.Flags().Bool("sync", false, "store paper records in the local library")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	pc, err := pipelineConfig()
	if err != nil {
		return err
	}
	cfg := pc.Acquisition
	flags := cmd.Flags()
	flagOverride(flags, "delay", flags.GetDuration, &cfg.DownloadDelay)
	flagOverride(flags, "papers-dir", flags.GetString, &cfg.PapersDir)

	client, err := newZoteroClient(pc.Zotero)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := acquire.AcquireBatch(ctx, client, args[0], cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if sync, _ := flags.GetBool("sync"); sync {
		store, err := library.Open(pc.LibraryDir)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SavePapers(ctx, result.Papers); err != nil {
			return err
		}
	}

	if result.HasFailures() {
		return fmt.Errorf("%d attachment(s) failed acquisition", result.Failed)
	}
	return nil
}
