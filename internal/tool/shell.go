// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package tool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// ShellTool runs a shell command and returns its stdout/stderr pair. An
// allowlist of command names bounds what the model may run; an empty
// allowlist denies everything.
type ShellTool struct {
	allowed []string
}

// NewShellTool creates a ShellTool restricted to the given command names.
func NewShellTool(allowed []string) *ShellTool {
	return &ShellTool{allowed: append([]string(nil), allowed...)}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	if len(t.allowed) == 0 {
		return "Runs a shell command. No commands are currently allowed."
	}
	return "Runs a shell command. Allowed commands: " + strings.Join(t.allowed, ", ") + ". Args: command (string)."
}

func (t *ShellTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The command line to run",
			},
		},
		"required": []any{"command"},
	}
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return Result{}, tethererr.New(tethererr.CodeToolInputInvalid, "missing or invalid 'command' argument")
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return Result{}, tethererr.New(tethererr.CodeToolInputInvalid, "empty command")
	}

	if !t.isAllowed(parts[0]) {
		return Result{}, tethererr.New(
			tethererr.CodeToolDenied,
			"command '"+parts[0]+"' is not in the list of allowed commands",
			tethererr.FieldTool(t.Name()),
		)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// A non-zero exit is still a result the model should see.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return CommandResult(stdout.String(), stderr.String()), nil
		}
		return Result{}, tethererr.Wrapf(err, tethererr.CodeToolExecutionFailure, "running command %q", parts[0])
	}

	return CommandResult(stdout.String(), stderr.String()), nil
}

func (t *ShellTool) isAllowed(name string) bool {
	for _, a := range t.allowed {
		if a == name {
			return true
		}
	}
	return false
}
