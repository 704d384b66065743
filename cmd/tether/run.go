// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tether-dev/tether/internal/config"
	"github.com/tether-dev/tether/internal/conversation"
	"github.com/tether-dev/tether/internal/hooks"
	"github.com/tether-dev/tether/internal/loopdetect"
	"github.com/tether-dev/tether/internal/orchestrator"
	"github.com/tether-dev/tether/internal/provider"
	"github.com/tether-dev/tether/internal/provider/anthropic"
	"github.com/tether-dev/tether/internal/provider/google"
	"github.com/tether-dev/tether/internal/provider/openai"
	"github.com/tether-dev/tether/internal/tool"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run one agent conversation",
		Long:  "Send a prompt to the configured provider and execute requested tool calls until the model answers or the iteration ceiling is reached.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().StringP("model", "m", "", "model override (provider/model)")
	cmd.Flags().StringP("provider", "p", "", "provider override")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := args[0]
	if prompt == "" {
		return tethererr.New(tethererr.CodeCLIInputInvalid, "prompt must not be empty")
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, cfgPath, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	config.WarnInsecurePermissions(cfgPath)

	model := cfg.Models.Default
	if override, _ := cmd.Flags().GetString("model"); override != "" {
		model = override
	}

	defaultProvider := cfg.Orchestrator.DefaultProvider
	if defaultProvider == "" {
		defaultProvider = config.ProviderFromModel(model)
	}
	if override, _ := cmd.Flags().GetString("provider"); override != "" {
		defaultProvider = override
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := providers.Close(); err != nil {
			slog.Warn("closing providers", "error", err)
		}
	}()

	tools := tool.NewRegistry()
	tools.Register(tool.NewShellTool(cfg.Tools.ShellAllow))
	tools.Register(tool.NewReadFileTool(cfg.Tools.FileRoot))

	bus := hooks.NewBus(slog.Default())

	detector, err := loopdetect.New(loopdetect.Config{
		WindowSize:          cfg.Detector.Window,
		SimilarityThreshold: &cfg.Detector.SimilarityThreshold,
		OnDetect:            loopdetect.Action(cfg.Detector.Action),
		ApplyToSubSessions:  cfg.Detector.ApplyToSubSessions,
	})
	if err != nil {
		return err
	}
	detector.Register(bus)

	orch := orchestrator.New(orchestrator.Config{
		MaxIterations:   cfg.Orchestrator.MaxIterations,
		WarnAt:          cfg.Orchestrator.WarnAt,
		DefaultProvider: defaultProvider,
		Model:           config.ModelName(model),
		StopOnError:     cfg.Orchestrator.StopOnError,
	})

	result, err := orch.Execute(cmd.Context(), prompt, conversation.NewLog(), providers, tools, bus)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
	return err
}

// loadConfig resolves the config path (flag, discovered file, or a freshly
// bootstrapped default) and loads it.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			} else {
				path = config.BootstrapConfig()
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// buildProviders registers every configured provider. Registration order is
// fixed so the no-default fallback is deterministic across runs.
func buildProviders(cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	if pc, ok := cfg.Providers["anthropic"]; ok {
		p, err := anthropic.New(anthropic.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		registry.Register(p.Name(), p)
	}

	if pc, ok := cfg.Providers["openai"]; ok {
		p, err := openai.New(openai.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		if err != nil {
			return nil, err
		}
		registry.Register(p.Name(), p)
	}

	if pc, ok := cfg.Providers["google"]; ok {
		p, err := google.New(google.Config{APIKey: pc.APIKey})
		if err != nil {
			return nil, err
		}
		registry.Register(p.Name(), p)
	}

	if registry.Len() == 0 {
		return nil, tethererr.New(
			tethererr.CodeCLISetupFailure,
			"no providers configured; add an api_key under providers in the config file",
		)
	}

	return registry, nil
}
