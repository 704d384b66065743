// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// maxReadBytes bounds how much file content a single call can feed into the
// conversation.
const maxReadBytes = 64 * 1024

// ReadFileTool returns the contents of a file under its root directory.
type ReadFileTool struct {
	root string
}

// NewReadFileTool creates a ReadFileTool rooted at the given directory.
func NewReadFileTool(root string) *ReadFileTool {
	return &ReadFileTool{root: root}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Reads a text file relative to the working directory. Args: path (string)."
}

func (t *ReadFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path relative to the working directory",
			},
		},
		"required": []any{"path"},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (Result, error) {
	rel, ok := args["path"].(string)
	if !ok || rel == "" {
		return Result{}, tethererr.New(tethererr.CodeToolInputInvalid, "missing or invalid 'path' argument")
	}

	full := filepath.Join(t.root, rel)
	cleanRoot := filepath.Clean(t.root)
	if !strings.HasPrefix(filepath.Clean(full), cleanRoot+string(os.PathSeparator)) && filepath.Clean(full) != cleanRoot {
		return Result{}, tethererr.New(
			tethererr.CodeToolDenied,
			"path escapes the working directory: "+rel,
			tethererr.FieldTool(t.Name()),
		)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, tethererr.Wrapf(err, tethererr.CodeToolInputInvalid, "file not found: %s", rel)
		}
		return Result{}, tethererr.Wrapf(err, tethererr.CodeToolExecutionFailure, "reading %s", rel)
	}

	if len(data) > maxReadBytes {
		data = data[:maxReadBytes]
	}
	return TextResult(string(data)), nil
}
