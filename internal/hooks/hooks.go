// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package hooks defines the typed event bus connecting the orchestrator to
// external observers and interceptors. The event set is closed: every
// emission site constructs one of the event types below, so payload shape is
// checked at compile time rather than carried in loose maps.
package hooks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tether-dev/tether/internal/provider"
)

// Action is the control decision carried by a Verdict.
type Action string

const (
	ActionContinue      Action = "continue"
	ActionDeny          Action = "deny"
	ActionInjectContext Action = "inject_context"
)

// Verdict is the decision returned by a hook handler. Only verdicts from
// ToolPre and ToolPost emissions alter control flow; for every other event
// the returned verdict is ignored.
type Verdict struct {
	Action Action

	// Reason explains a deny.
	Reason string

	// Injection carries the message content for inject_context; the role
	// defaults to system when empty.
	Injection     string
	InjectionRole provider.MessageRole
}

// Continue is the no-op verdict.
func Continue() Verdict {
	return Verdict{Action: ActionContinue}
}

// Kind identifies an event type on the bus.
type Kind string

const (
	KindProviderRequest  Kind = "provider:request"
	KindProviderResponse Kind = "provider:response"
	KindProviderError    Kind = "provider:error"
	KindToolPre          Kind = "tool:pre"
	KindToolPost         Kind = "tool:post"
	KindToolError        Kind = "tool:error"
	KindComplete         Kind = "orchestrator:complete"
	KindLimitReached     Kind = "orchestrator:limit_reached"
)

// Event is implemented by every bus payload type.
type Event interface {
	Kind() Kind
}

// ProviderRequest fires before each completion call.
type ProviderRequest struct {
	Provider  string
	Messages  []provider.Message
	Iteration int
	WrapUp    bool
}

func (ProviderRequest) Kind() Kind { return KindProviderRequest }

// ProviderResponse fires after each successful completion call.
type ProviderResponse struct {
	Provider string
	Content  string
	Usage    *provider.Usage
}

func (ProviderResponse) Kind() Kind { return KindProviderResponse }

// ProviderError fires when a completion call fails.
type ProviderError struct {
	Provider string
	Err      error
}

func (ProviderError) Kind() Kind { return KindProviderError }

// ToolPre fires before a tool executes. The returned verdict is consulted:
// deny blocks the call, inject_context appends a message first.
type ToolPre struct {
	ToolName   string
	ToolInput  map[string]any
	ToolCallID string
}

func (ToolPre) Kind() Kind { return KindToolPre }

// ToolPost fires after a tool executes successfully. The returned verdict is
// consulted before the next provider call; this is what feeds the loop
// detector.
type ToolPost struct {
	ToolName   string
	ToolInput  map[string]any
	ToolResult string

	// ParentID is non-empty for calls originating in a sub-session.
	ParentID string
}

func (ToolPost) Kind() Kind { return KindToolPost }

// ToolError fires when a tool is missing or its execution fails.
type ToolError struct {
	ToolName string
	Err      error
}

func (ToolError) Kind() Kind { return KindToolError }

// CompletionStatus classifies how an invocation ended.
type CompletionStatus string

const (
	StatusSuccess    CompletionStatus = "success"
	StatusIncomplete CompletionStatus = "incomplete"
	StatusError      CompletionStatus = "error"
)

// Complete fires once when an invocation returns.
type Complete struct {
	TurnCount int
	Status    CompletionStatus
}

func (Complete) Kind() Kind { return KindComplete }

// LimitReached fires when the iteration ceiling is hit, before the wrap-up
// request.
type LimitReached struct {
	Iteration     int
	MaxIterations int
}

func (LimitReached) Kind() Kind { return KindLimitReached }

// Handler processes one event and may return a control verdict. Returning an
// error never aborts the invocation; errors are logged and treated as
// continue.
type Handler func(ctx context.Context, ev Event) (Verdict, error)

// Notifier is the emission contract the orchestrator depends on.
type Notifier interface {
	Emit(ctx context.Context, ev Event) Verdict
}

// Bus dispatches events to handlers subscribed per kind, in subscription
// order. All handlers for a kind run on every emission; the first
// non-continue verdict wins and is returned to the emitter.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	log      *slog.Logger
}

// NewBus creates an empty Bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		handlers: make(map[Kind][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Emit dispatches the event and returns the first non-continue verdict, or
// the continue verdict when no handler objects.
func (b *Bus) Emit(ctx context.Context, ev Event) Verdict {
	b.mu.RLock()
	handlers := b.handlers[ev.Kind()]
	b.mu.RUnlock()

	verdict := Continue()
	decided := false

	for _, h := range handlers {
		v, err := h(ctx, ev)
		if err != nil {
			b.log.Warn("hook handler failed",
				"event", string(ev.Kind()),
				"error", err,
			)
			continue
		}
		if !decided && v.Action != "" && v.Action != ActionContinue {
			verdict = v
			decided = true
		}
	}

	return verdict
}
