// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads platform credentials and the token signing key from
// a directory of plain-text files. Each file is one secret: the filename is
// the key name and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/jobstream/pkg/types"
)

// Key file names understood by Apply.
const (
	AdzunaAppID  = "adzuna-app-id"
	AdzunaAppKey = "adzuna-app-key"
	JWTSecret    = "jwt-secret"
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

// Apply copies known secrets into cfg. Values already set through the
// config file or environment win.
func Apply(secrets map[string]string, cfg *types.Config) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.Platforms.AdzunaAppID, AdzunaAppID)
	fill(&cfg.Platforms.AdzunaAppKey, AdzunaAppKey)
	fill(&cfg.Server.JWTSecret, JWTSecret)
}
