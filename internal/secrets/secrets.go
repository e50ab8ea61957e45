// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: zotero-api-key, zotero-library-id.
//
// A .env file can supply the same secrets as ZOTERO_API_KEY and
// ZOTERO_LIBRARY_ID; see LoadEnv.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Secret key names.
const (
	ZoteroAPIKey    = "zotero-api-key"
	ZoteroLibraryID = "zotero-library-id"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// envKeys maps .env variable names to secret key names.
var envKeys = map[string]string{
	"ZOTERO_API_KEY":    ZoteroAPIKey,
	"ZOTERO_LIBRARY_ID": ZoteroLibraryID,
}

// LoadEnv reads the given .env files and returns the recognised variables
// under their secret key names. Later files override earlier ones. Missing
// files are skipped; a malformed file is an error.
func LoadEnv(files ...string) (map[string]string, error) {
	out := make(map[string]string)
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		for name, key := range envKeys {
			if v := strings.TrimSpace(vars[name]); v != "" {
				out[key] = v
			}
		}
	}
	return out, nil
}

// Merge returns base with every non-empty value of over applied on top.
// Neither argument is modified.
func Merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
