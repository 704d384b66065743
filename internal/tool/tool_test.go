// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package tool_test

import (
	"context"
	"testing"

	"github.com/tether-dev/tether/internal/tool"
	tethererr "github.com/tether-dev/tether/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string                 { return f.name }
func (f *fakeTool) Description() string          { return "fake " + f.name }
func (f *fakeTool) InputSchema() map[string]any  { return map[string]any{"type": "object"} }
func (f *fakeTool) Execute(context.Context, map[string]any) (tool.Result, error) {
	return tool.TextResult("ok"), nil
}

func TestRegistryDefinitionsInRegistrationOrder(t *testing.T) {
	r := tool.NewRegistry()
	r.Register(&fakeTool{name: "zeta"})
	r.Register(&fakeTool{name: "alpha"})

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "zeta", defs[0].Name)
	assert.Equal(t, "alpha", defs[1].Name)
	assert.Equal(t, "fake zeta", defs[0].Description)
}

func TestRegistryGet(t *testing.T) {
	r := tool.NewRegistry()
	ft := &fakeTool{name: "echo"}
	r.Register(ft)

	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Same(t, ft, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestShellToolDisallowedCommand(t *testing.T) {
	st := tool.NewShellTool([]string{"echo"})

	_, err := st.Execute(context.Background(), map[string]any{"command": "rm -rf /"})
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeToolDenied))
}

func TestShellToolMissingArgument(t *testing.T) {
	st := tool.NewShellTool([]string{"echo"})

	_, err := st.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeToolInputInvalid))
}

func TestShellToolCapturesStdout(t *testing.T) {
	st := tool.NewShellTool([]string{"echo"})

	res, err := st.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, tool.KindCommand, res.Kind)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestReadFileToolReadsRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "note.txt", "contents here")

	rf := tool.NewReadFileTool(dir)
	res, err := rf.Execute(context.Background(), map[string]any{"path": "note.txt"})
	require.NoError(t, err)
	assert.Equal(t, "contents here", res.Render())
}

func TestReadFileToolRejectsEscape(t *testing.T) {
	rf := tool.NewReadFileTool(t.TempDir())

	_, err := rf.Execute(context.Background(), map[string]any{"path": "../../etc/passwd"})
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeToolDenied))
}

func TestReadFileToolMissingFile(t *testing.T) {
	rf := tool.NewReadFileTool(t.TempDir())

	_, err := rf.Execute(context.Background(), map[string]any{"path": "nope.txt"})
	require.Error(t, err)
	assert.True(t, tethererr.IsInvalidInput(err))
}
