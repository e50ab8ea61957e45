// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litharvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litharvest/internal/logging"
	"github.com/pdiddy/litharvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials from .secrets/ and .env, loaded at startup.
var loadedSecrets map[string]string

// logger is configured from --log-level and --log-format before any command runs.
var logger = zerolog.Nop()

// secretDefault returns fallback if set, otherwise the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

var rootCmd = &cobra.Command{
	Use:   "litharvest",
	Short: "Collect, screen and file literature for a review",
	Long: `litharvest supports a literature-review workflow. It harvests result links
from a search page shown on screen, reads collections from a Zotero library,
screens exported abstracts with a local language model, downloads PDF
attachments, and keeps a local SQLite copy of what it has seen.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(logging.Config{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
		})
		if err != nil {
			return err
		}
		logger = log

		fromFiles, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		fromEnv, err := secrets.LoadEnv(".env")
		if err != nil {
			return err
		}
		loadedSecrets = secrets.Merge(fromFiles, fromEnv)
		if len(loadedSecrets) > 0 {
			keys := make([]string, 0, len(loadedSecrets))
			for k := range loadedSecrets {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litharvest.yaml or ~/.config/litharvest/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "log format: console or json")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litharvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litharvest"))
		}
	}

	configureEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
