// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litharvest/internal/export"
	"github.com/pdiddy/litharvest/internal/library"
	"github.com/pdiddy/litharvest/pkg/types"
)

var zoteroCmd = &cobra.Command{
	Use:   "zotero",
	Short: "Read collections and items from a Zotero library",
	Long: `Zotero lists a collection tree and its items through the Zotero web API.
Credentials come from .secrets/zotero-api-key and .secrets/zotero-library-id,
or ZOTERO_API_KEY and ZOTERO_LIBRARY_ID in .env.`,
}

var zoteroCollectionsCmd = &cobra.Command{
	Use:   "collections <collection-key>",
	Short: "Print a collection and all of its sub-collections",
	Args:  cobra.ExactArgs(1),
	RunE:  runZoteroCollections,
}

var zoteroItemsCmd = &cobra.Command{
	Use:   "items <collection-key>",
	Short: "List the items of a collection tree",
	Long: `Items lists every item in the collection and its sub-collections. With
--csv the items are written to a CSV file; with --sync the collections and
items are stored in the local library.`,
	Args: cobra.ExactArgs(1),
	RunE: runZoteroItems,
}

func init() {
	zoteroCmd.PersistentFlags().String("library-type", "", "group or user (default group)")

	zoteroItemsCmd.Flags().String("csv", "", "write items to this CSV file")
	zoteroItemsCmd.Flags().Bool("children", false, "include attachments and notes in the CSV")
	zoteroItemsCmd.Flags().Bool("sync", false, "store collections and items in the local library")

	zoteroCmd.AddCommand(zoteroCollectionsCmd, zoteroItemsCmd)
	rootCmd.AddCommand(zoteroCmd)
}

func zoteroConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	pc, err := pipelineConfig()
	if err != nil {
		return pc, err
	}
	if lt, _ := cmd.Flags().GetString("library-type"); lt != "" {
		pc.Zotero.LibraryType = types.LibraryType(lt)
	}
	return pc, nil
}

func runZoteroCollections(cmd *cobra.Command, args []string) error {
	pc, err := zoteroConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newZoteroClient(pc.Zotero)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	cols, err := client.Collections(ctx, args[0])
	if err != nil {
		return err
	}
	printCollectionTree(cmd.OutOrStdout(), cols)
	return nil
}

// printCollectionTree indents each collection under its parent. cols is in
// depth-first order with the root first.
func printCollectionTree(w io.Writer, cols []types.Collection) {
	depth := make(map[string]int, len(cols))
	for _, c := range cols {
		d := 0
		if pd, ok := depth[c.Parent]; ok {
			d = pd + 1
		}
		depth[c.ID] = d
		fmt.Fprintf(w, "%s%s  %s\n", strings.Repeat("  ", d), c.ID, c.Name)
	}
}

func runZoteroItems(cmd *cobra.Command, args []string) error {
	pc, err := zoteroConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newZoteroClient(pc.Zotero)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	cols, items, err := client.AllItems(ctx, args[0])
	if err != nil {
		return err
	}
	logger.Info().Str("collection", args[0]).Int("collections", len(cols)).Int("items", len(items)).Msg("listed collection tree")

	csvPath, _ := cmd.Flags().GetString("csv")
	children, _ := cmd.Flags().GetBool("children")
	if csvPath != "" {
		err := export.WriteFile(csvPath, func(w io.Writer) error {
			return export.WriteItems(w, items, children)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items to %s\n", len(items), csvPath)
	} else {
		printItems(cmd.OutOrStdout(), items)
	}

	if sync, _ := cmd.Flags().GetBool("sync"); sync {
		store, err := library.Open(pc.LibraryDir)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveCollections(ctx, cols); err != nil {
			return err
		}
		if err := store.SaveItems(ctx, items); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d collections and %d items to %s\n", len(cols), len(items), pc.LibraryDir)
	}
	return nil
}

func printItems(w io.Writer, items []types.Item) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCOLLECTION\tTYPE\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.CollectionID, it.ItemType, truncate(it.Title, 70))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
