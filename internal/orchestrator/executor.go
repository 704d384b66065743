// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package orchestrator

import (
	"context"
	"log/slog"

	"github.com/tether-dev/tether/internal/hooks"
	"github.com/tether-dev/tether/internal/provider"
	"github.com/tether-dev/tether/internal/tool"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Executor resolves and runs a single tool call, normalizing every result
// shape into the text that becomes the tool-role message.
type Executor struct {
	tools       *tool.Registry
	bus         hooks.Notifier
	stopOnError bool
	parentID    string
	log         *slog.Logger
}

// NewExecutor creates an Executor over the given registry. parentID is
// non-empty when the owning invocation is a sub-session; it is carried on
// tool:post events so observers can filter.
func NewExecutor(tools *tool.Registry, bus hooks.Notifier, stopOnError bool, parentID string, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		tools:       tools,
		bus:         bus,
		stopOnError: stopOnError,
		parentID:    parentID,
		log:         log,
	}
}

// Execute runs one tool call and returns the normalized result text plus the
// verdict from the tool:post emission. A missing tool or a failed execution
// yields error-prefixed text rather than an error; the returned error is
// non-nil only in stop-on-error mode, where a tool failure is fatal to the
// invocation.
func (e *Executor) Execute(ctx context.Context, call provider.ToolCall) (string, hooks.Verdict, error) {
	t, ok := e.tools.Get(call.Name)
	if !ok {
		err := tethererr.New(
			tethererr.CodeToolNotFound,
			"Tool '"+call.Name+"' not found",
			tethererr.FieldTool(call.Name),
		)
		e.log.Error("tool not found", "tool", call.Name)
		e.bus.Emit(ctx, hooks.ToolError{ToolName: call.Name, Err: err})
		return "Error: Tool '" + call.Name + "' not found", hooks.Continue(), nil
	}

	result, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		e.log.Error("tool execution failed", "tool", call.Name, "error", err)
		e.bus.Emit(ctx, hooks.ToolError{ToolName: call.Name, Err: err})
		if e.stopOnError {
			return "", hooks.Continue(), tethererr.Wrapf(
				err, tethererr.CodeToolExecutionFailure, "executing tool %q", call.Name,
			)
		}
		return "Tool execution failed: " + err.Error(), hooks.Continue(), nil
	}

	text := result.Render()

	verdict := e.bus.Emit(ctx, hooks.ToolPost{
		ToolName:   call.Name,
		ToolInput:  call.Arguments,
		ToolResult: text,
		ParentID:   e.parentID,
	})

	return text, verdict, nil
}
