// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// defaultConfigYAML is the commented starter config written on first run.
//
//go:embed tether.yaml.default
var defaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/tether/tether.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", tethererr.Errorf(tethererr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tether", "tether.yaml"), nil
}

// BootstrapConfig seeds the default config file on first run and returns the
// path it wrote. An existing file is left untouched and any failure is
// logged and swallowed; both report as an empty path, since a missing config
// file is never fatal (defaults still apply).
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	if err := writeDefaultConfig(cfgPath); err != nil {
		slog.Debug("skipping config bootstrap", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

// writeDefaultConfig creates the parent directory and writes the starter
// config. Directory 0700 and file 0600 keep future api_key entries private.
func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, defaultConfigYAML, 0o600)
}
