//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// binary returns the path of the built CLI.
func binary() string {
	return filepath.Join(binDir, binName)
}

// envOr returns the environment variable name, or fallback when it is unset.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// Harvest builds the CLI and harvests result links from the page on screen.
// TEMPLATE (default mark.png) and PAGES (default from config) tune the run.
func Harvest() error {
	mg.Deps(Init, Build)
	args := []string{"harvest",
		"--template", envOr("TEMPLATE", "mark.png"),
		"--out", filepath.Join("output", "links.txt"),
		"--debug-dir", "debug",
	}
	if pages := os.Getenv("PAGES"); pages != "" {
		args = append(args, "--pages", pages)
	}
	return sh.RunV(binary(), args...)
}

// Classify builds the CLI and screens the abstracts of a Web of Science
// export named by INPUT (default savedrecs.txt).
func Classify() error {
	mg.Deps(Init, Build)
	return sh.RunV(binary(), "classify",
		"--input", envOr("INPUT", "savedrecs.txt"),
		"--out", filepath.Join("output", "processed_data.csv"),
		"--sync",
	)
}

// Acquire builds the CLI and downloads the PDFs of the collection named by
// COLLECTION.
func Acquire() error {
	mg.Deps(Init, Build)
	key := os.Getenv("COLLECTION")
	if key == "" {
		return fmt.Errorf("set COLLECTION to a Zotero collection key")
	}
	return sh.RunV(binary(), "acquire", key, "--sync")
}
