// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/litharvest/internal/secrets"
	"github.com/pdiddy/litharvest/internal/zotero"
	"github.com/pdiddy/litharvest/pkg/types"
)

// configureEnv maps config keys onto LITHARVEST_* variables, e.g.
// harvest.max_pages onto LITHARVEST_HARVEST_MAX_PAGES.
func configureEnv() {
	viper.SetEnvPrefix("LITHARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// pipelineConfig returns the stage defaults overlaid with the config file
// and LITHARVEST_* environment.
func pipelineConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	// Unmarshal only consults the environment for keys viper already knows.
	setDefaults("", reflect.ValueOf(cfg))
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every leaf of a config struct as a viper default,
// keyed by its mapstructure path.
func setDefaults(prefix string, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		fv := v.Field(i)
		if opts == "squash" {
			setDefaults(prefix, fv)
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		if fv.Kind() == reflect.Struct {
			setDefaults(prefix+name+".", fv)
			continue
		}
		viper.SetDefault(prefix+name, fv.Interface())
	}
}

// flagOverride copies a flag value into dst when the user set it.
func flagOverride[T any](flags *pflag.FlagSet, name string, get func(string) (T, error), dst *T) {
	if !flags.Changed(name) {
		return
	}
	if v, err := get(name); err == nil {
		*dst = v
	}
}

// newZoteroClient builds a client with credentials from config or secrets.
func newZoteroClient(cfg types.ZoteroConfig) (*zotero.Client, error) {
	cfg.APIKey = secretDefault(secrets.ZoteroAPIKey, cfg.APIKey)
	cfg.LibraryID = secretDefault(secrets.ZoteroLibraryID, cfg.LibraryID)
	c, err := zotero.New(cfg)
	if errors.Is(err, zotero.ErrMissingCredentials) {
		return nil, fmt.Errorf("%w (set .secrets/%s and .secrets/%s, or ZOTERO_API_KEY and ZOTERO_LIBRARY_ID in .env)",
			err, secrets.ZoteroAPIKey, secrets.ZoteroLibraryID)
	}
	return c, err
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
