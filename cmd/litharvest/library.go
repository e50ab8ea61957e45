// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litharvest/internal/library"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Query the local library",
	Long: `Library reads the SQLite copy of collections, items and screening verdicts
stored by "zotero items --sync", "classify --sync" and "acquire --sync".`,
}

var libraryCollectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List stored collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, store *library.Store) error {
			cols, err := store.Collections(ctx)
			if err != nil {
				return err
			}
			printCollectionTree(cmd.OutOrStdout(), cols)
			return nil
		})
	},
}

var libraryItemsCmd = &cobra.Command{
	Use:   "items <collection-key>",
	Short: "List stored items of one collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, store *library.Store) error {
			items, err := store.Items(ctx, args[0])
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		})
	},
}

var librarySearchCmd = &cobra.Command{
	Use:   "search <words>...",
	Short: "Find stored items whose title or abstract contains every word",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max-results")
		return withLibrary(func(ctx context.Context, store *library.Store) error {
			items, err := store.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		})
	},
}

var libraryVerdictCmd = &cobra.Command{
	Use:   "verdict <doi>",
	Short: "Show the stored screening verdict for a DOI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, store *library.Store) error {
			c, ok, err := store.Classification(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no verdict stored for %s", args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "is_agtech: %s\n", c.IsAgtech)
			fmt.Fprintf(w, "sentence:  %s\n", c.Sentence)
			fmt.Fprintf(w, "reason:    %s\n", c.Reason)
			return nil
		})
	},
}

func init() {
	librarySearchCmd.Flags().Int("max-results", 20, "maximum number of results")

	libraryCmd.AddCommand(libraryCollectionsCmd, libraryItemsCmd, librarySearchCmd, libraryVerdictCmd)
	rootCmd.AddCommand(libraryCmd)
}

// withLibrary opens the configured library for the duration of fn.
func withLibrary(fn func(ctx context.Context, store *library.Store) error) error {
	pc, err := pipelineConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(pc.LibraryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()
	return fn(ctx, store)
}
