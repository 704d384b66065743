// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package orchestrator_test

import (
	"context"
	"strings"
	"sync"

	"github.com/tether-dev/tether/internal/conversation"
	"github.com/tether-dev/tether/internal/hooks"
	"github.com/tether-dev/tether/internal/provider"
	"github.com/tether-dev/tether/internal/tool"
)

// scriptedProvider replays a fixed sequence of responses, then keeps
// returning fallback. It records every request it receives.
type scriptedProvider struct {
	mu        sync.Mutex
	name      string
	responses []*provider.ChatResponse
	errs      []error
	fallback  *provider.ChatResponse
	requests  []provider.ChatRequest
}

func newScriptedProvider(name string) *scriptedProvider {
	return &scriptedProvider{
		name:     name,
		fallback: &provider.ChatResponse{Content: "fallback"},
	}
}

func (p *scriptedProvider) respond(resp *provider.ChatResponse) *scriptedProvider {
	p.responses = append(p.responses, resp)
	p.errs = append(p.errs, nil)
	return p
}

func (p *scriptedProvider) fail(err error) *scriptedProvider {
	p.responses = append(p.responses, nil)
	p.errs = append(p.errs, err)
	return p
}

func (p *scriptedProvider) Name() string                   { return p.name }
func (p *scriptedProvider) Available(context.Context) bool { return true }
func (p *scriptedProvider) Close() error                   { return nil }

func (p *scriptedProvider) Complete(_ context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := len(p.requests)
	p.requests = append(p.requests, req)

	if i < len(p.responses) {
		if p.errs[i] != nil {
			return nil, p.errs[i]
		}
		return p.responses[i], nil
	}
	return p.fallback, nil
}

func (p *scriptedProvider) ParseToolCalls(resp *provider.ChatResponse) []provider.ToolCall {
	return resp.ToolCalls
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) request(i int) provider.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[i]
}

// toolCallResponse builds an assistant response carrying a single tool call.
func toolCallResponse(id, name string, args map[string]any) *provider.ChatResponse {
	return &provider.ChatResponse{
		Content: "",
		ToolCalls: []provider.ToolCall{
			{ID: id, Name: name, Arguments: args},
		},
	}
}

func textResponse(text string) *provider.ChatResponse {
	return &provider.ChatResponse{Content: text}
}

// loopForever makes the provider request the same tool call on every
// completion once the script runs out, simulating a model that never stops.
func (p *scriptedProvider) loopForever(toolName string) *scriptedProvider {
	p.fallback = toolCallResponse("call-loop", toolName, map[string]any{"n": 1})
	return p
}

// countingTool records executions and returns a canned result.
type countingTool struct {
	mu     sync.Mutex
	name   string
	result tool.Result
	err    error
	calls  int
}

func (t *countingTool) Name() string                { return t.name }
func (t *countingTool) Description() string         { return "test tool " + t.name }
func (t *countingTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }

func (t *countingTool) Execute(context.Context, map[string]any) (tool.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return tool.Result{}, t.err
	}
	return t.result, nil
}

func (t *countingTool) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// eventRecorder captures every bus emission for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []hooks.Event
}

func (r *eventRecorder) attach(bus *hooks.Bus) {
	kinds := []hooks.Kind{
		hooks.KindProviderRequest, hooks.KindProviderResponse, hooks.KindProviderError,
		hooks.KindToolPre, hooks.KindToolPost, hooks.KindToolError,
		hooks.KindComplete, hooks.KindLimitReached,
	}
	for _, kind := range kinds {
		bus.Subscribe(kind, func(_ context.Context, ev hooks.Event) (hooks.Verdict, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
			return hooks.Continue(), nil
		})
	}
}

func (r *eventRecorder) ofKind(kind hooks.Kind) []hooks.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []hooks.Event
	for _, ev := range r.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

// systemMessagesContaining counts system-role log entries containing substr.
func systemMessagesContaining(log *conversation.Log, substr string) int {
	count := 0
	for _, m := range log.Messages() {
		if m.Role == provider.MessageRoleSystem && strings.Contains(m.Content, substr) {
			count++
		}
	}
	return count
}
