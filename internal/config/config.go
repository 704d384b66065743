// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package config loads and validates tether configuration from defaults, an
// optional yaml file, and TETHER_-prefixed environment variables.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Config is the top-level tether configuration.
type Config struct {
	Orchestrator OrchestratorConfig        `mapstructure:"orchestrator"`
	Detector     DetectorConfig            `mapstructure:"detector"`
	Providers    map[string]ProviderConfig `mapstructure:"providers"`
	Models       ModelsConfig              `mapstructure:"models"`
	Tools        ToolsConfig               `mapstructure:"tools"`
}

// OrchestratorConfig controls the conversation loop.
type OrchestratorConfig struct {
	MaxIterations   int    `mapstructure:"max_iterations"`
	WarnAt          []int  `mapstructure:"warn_at"`
	DefaultProvider string `mapstructure:"default_provider"`
	StopOnError     bool   `mapstructure:"stop_on_error"`
}

// DetectorConfig controls the repetitive-call detector.
type DetectorConfig struct {
	Window              int     `mapstructure:"window"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	Action              string  `mapstructure:"action"`
	ApplyToSubSessions  bool    `mapstructure:"apply_to_sub_sessions"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls model selection.
type ModelsConfig struct {
	Default string `mapstructure:"default"`
}

// ToolsConfig controls the builtin tools.
type ToolsConfig struct {
	ShellAllow []string `mapstructure:"shell_allow"`
	FileRoot   string   `mapstructure:"file_root"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix TETHER_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("orchestrator.max_iterations", 100)
	v.SetDefault("orchestrator.warn_at", []int{75, 90})
	v.SetDefault("orchestrator.stop_on_error", false)
	v.SetDefault("detector.window", 10)
	v.SetDefault("detector.similarity_threshold", 0.85)
	v.SetDefault("detector.action", "warn")
	v.SetDefault("detector.apply_to_sub_sessions", false)
	v.SetDefault("models.default", "anthropic/claude-sonnet-4-5")
	v.SetDefault("tools.shell_allow", []string{"ls", "cat", "grep"})
	v.SetDefault("tools.file_root", ".")

	// Environment
	v.SetEnvPrefix("TETHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, tethererr.Errorf(tethererr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, tethererr.Errorf(tethererr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than stopping
// at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateOrchestrator()...)
	errs = append(errs, c.validateDetector()...)
	errs = append(errs, c.validateModels()...)

	return errs
}

func (c *Config) validateOrchestrator() []error {
	var errs []error

	if c.Orchestrator.MaxIterations <= 0 {
		errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
			"config: orchestrator.max_iterations must be greater than 0, got %d",
			c.Orchestrator.MaxIterations,
		))
	}

	for i, at := range c.Orchestrator.WarnAt {
		if at <= 0 {
			errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
				"config: orchestrator.warn_at[%d] must be greater than 0, got %d",
				i, at,
			))
		}
	}

	if name := c.Orchestrator.DefaultProvider; name != "" && c.Providers != nil {
		if _, ok := c.Providers[name]; !ok {
			errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
				"config: orchestrator.default_provider %q is not configured under providers",
				name,
			))
		}
	}

	return errs
}

func (c *Config) validateDetector() []error {
	var errs []error

	if c.Detector.Window <= 0 {
		errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
			"config: detector.window must be greater than 0, got %d",
			c.Detector.Window,
		))
	}

	if c.Detector.SimilarityThreshold < 0 || c.Detector.SimilarityThreshold > 1 {
		errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
			"config: detector.similarity_threshold must be between 0 and 1, got %g",
			c.Detector.SimilarityThreshold,
		))
	}

	validActions := map[string]bool{"warn": true, "deny": true, "log": true}
	if !validActions[c.Detector.Action] {
		errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
			"config: detector.action must be one of [warn, deny, log], got %q",
			c.Detector.Action,
		))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	if c.Models.Default == "" {
		errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue, "config: models.default must not be empty"))
	} else if !strings.Contains(c.Models.Default, "/") {
		errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
			"config: models.default must be in \"provider/model\" format, got %q",
			c.Models.Default,
		))
	} else if c.Providers != nil {
		// Only cross-reference providers when the providers section exists
		// in config. A nil map means no providers section was configured
		// (e.g., defaults only on fresh install), which is valid.
		providerName := ProviderFromModel(c.Models.Default)
		if _, ok := c.Providers[providerName]; !ok {
			errs = append(errs, tethererr.Errorf(tethererr.CodeConfigValidateInvalidValue,
				"config: models.default %q references provider %q which is not configured",
				c.Models.Default, providerName,
			))
		}
	}

	return errs
}

// ProviderFromModel extracts the provider prefix from a "provider/model"
// string.
func ProviderFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}

// ModelName extracts the bare model identifier from a "provider/model"
// string.
func ModelName(model string) string {
	if idx := strings.Index(model, "/"); idx >= 0 && idx < len(model)-1 {
		return model[idx+1:]
	}
	return model
}
