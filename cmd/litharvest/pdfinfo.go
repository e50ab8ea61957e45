// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litharvest/internal/pdfmeta"
)

var pdfinfoCmd = &cobra.Command{
	Use:   "pdfinfo <file.pdf>...",
	Short: "Print the title, authors and page count of PDF files",
	Long: `Pdfinfo prints the document information of each PDF as YAML. With --text
it prints the plain text of every page instead, separated by form feeds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if withText, _ := cmd.Flags().GetBool("text"); withText {
			return printText(cmd.OutOrStdout(), args)
		}

		var infos []pdfmeta.Info
		var failed int
		for _, path := range args {
			info, err := pdfmeta.Read(path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("reading PDF metadata")
				failed++
				continue
			}
			infos = append(infos, info)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) could not be read", failed, len(args))
		}
		return nil
	},
}

func init() {
	pdfinfoCmd.Flags().Bool("text", false, "print the text of every page")

	rootCmd.AddCommand(pdfinfoCmd)
}

func printText(w io.Writer, paths []string) error {
	for _, path := range paths {
		pages, err := pdfmeta.Text(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "==> %s (%d pages)\n", path, len(pages))
		fmt.Fprintln(w, strings.Join(pages, "\f"))
	}
	return nil
}
