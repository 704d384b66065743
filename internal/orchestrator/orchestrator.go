// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package orchestrator drives the agent conversation loop: it repeatedly
// asks a provider for the next step, executes requested tool calls strictly
// in order, and feeds results back, under a hard iteration ceiling that
// guarantees termination even when the provider never stops requesting
// tools.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tether-dev/tether/internal/conversation"
	"github.com/tether-dev/tether/internal/hooks"
	"github.com/tether-dev/tether/internal/provider"
	"github.com/tether-dev/tether/internal/tool"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// DefaultMaxIterations is the iteration ceiling when none is configured.
const DefaultMaxIterations = 100

// defaultWarnAt are the iteration counts at which a warning is injected
// when none are configured.
var defaultWarnAt = []int{75, 90}

const warningFormat = `**Iteration Warning**
You are at iteration %d of %d maximum (%d%%).

Consider:
- Have you made progress toward the goal?
- Are you stuck in a monitoring or polling loop?
- Should you summarize progress and return to the user?`

const terminationFormat = `**Maximum Iterations Reached**
Stopped at %d iterations to prevent runaway execution.

You MUST now:
1. Summarize the progress made
2. Explain what was accomplished
3. Indicate what remains to be done
4. Return control to the user

Do NOT attempt to continue the task. Provide a summary and stop.`

// wrapUpFailureFormat is the fixed degraded-mode return when the final
// summarizing request itself fails.
const wrapUpFailureFormat = "Reached iteration limit. Failed to generate summary: %s"

// Conversation is the append-only message log contract the loop writes to.
type Conversation interface {
	Append(msg conversation.Message) error
	MessagesForRequest() []provider.Message
}

// ProviderSet resolves providers by name, with a deterministic first
// provider for the no-default fallback.
type ProviderSet interface {
	Get(name string) (provider.Provider, error)
	First() (string, provider.Provider, error)
}

// Config holds orchestrator settings.
type Config struct {
	// MaxIterations is the hard ceiling on provider request/response
	// cycles per invocation (default 100).
	MaxIterations int

	// WarnAt lists iteration counts at which a warning message is
	// injected, each at most once per invocation (default 75, 90).
	WarnAt []int

	// DefaultProvider names the provider to use; empty selects the first
	// registered provider.
	DefaultProvider string

	// Model is the model identifier passed through to the provider.
	Model string

	// StopOnError makes a tool execution failure fatal to the whole
	// invocation instead of degrading into an error-text tool result.
	StopOnError bool

	// ParentSessionID marks this invocation as a sub-session on tool:post
	// events.
	ParentSessionID string

	Logger *slog.Logger
}

// Orchestrator is the top-level loop state machine. It is stateless across
// invocations: the iteration counter lives on the stack of Execute, so one
// Orchestrator may serve sequential invocations without leakage.
type Orchestrator struct {
	maxIterations   int
	warnAt          []int
	defaultProvider string
	model           string
	stopOnError     bool
	parentSessionID string
	log             *slog.Logger
}

// New creates an Orchestrator. Zero-value config fields take defaults.
func New(cfg Config) *Orchestrator {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	warnAt := cfg.WarnAt
	if warnAt == nil {
		warnAt = defaultWarnAt
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		maxIterations:   maxIterations,
		warnAt:          slices.Clone(warnAt),
		defaultProvider: cfg.DefaultProvider,
		model:           cfg.Model,
		stopOnError:     cfg.StopOnError,
		parentSessionID: cfg.ParentSessionID,
		log:             log,
	}
}

// Execute runs the conversation loop for one prompt and returns the final
// assistant text. Provider failures are fatal; tool failures degrade into
// error-text results unless stop-on-error is configured; the iteration
// ceiling forces a summarizing wrap-up response.
func (o *Orchestrator) Execute(
	ctx context.Context,
	prompt string,
	conv Conversation,
	providers ProviderSet,
	tools *tool.Registry,
	bus hooks.Notifier,
) (string, error) {
	if prompt == "" {
		return "", tethererr.New(tethererr.CodeOrchestratorInvalidInput, "prompt must not be empty")
	}

	providerName, prov, err := o.selectProvider(providers)
	if err != nil {
		return "", err
	}

	if err := conv.Append(conversation.Message{
		Role:    provider.MessageRoleUser,
		Content: prompt,
	}); err != nil {
		return "", tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending prompt")
	}

	executor := NewExecutor(tools, bus, o.stopOnError, o.parentSessionID, o.log)
	defs := tools.Definitions()

	// The counter is local to the invocation and starts fresh each call.
	count := 0

	for {
		count++

		if slices.Contains(o.warnAt, count) {
			if err := o.injectWarning(conv, count); err != nil {
				return "", err
			}
		}

		if count >= o.maxIterations {
			o.log.Warn("iteration ceiling reached", "max_iterations", o.maxIterations)
			bus.Emit(ctx, hooks.LimitReached{Iteration: count, MaxIterations: o.maxIterations})
			return o.wrapUp(ctx, conv, providerName, prov, bus, count)
		}

		messages := conv.MessagesForRequest()
		bus.Emit(ctx, hooks.ProviderRequest{
			Provider:  providerName,
			Messages:  messages,
			Iteration: count,
		})

		resp, err := prov.Complete(ctx, provider.ChatRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			o.log.Error("provider completion failed", "provider", providerName, "error", err)
			bus.Emit(ctx, hooks.ProviderError{Provider: providerName, Err: err})
			return "", tethererr.Wrap(
				err, tethererr.CodeProviderUpstreamFailure, "completion failed",
				tethererr.FieldProvider(providerName),
				tethererr.FieldIteration(count),
			)
		}

		bus.Emit(ctx, hooks.ProviderResponse{
			Provider: providerName,
			Content:  resp.Content,
			Usage:    resp.Usage,
		})

		toolCalls := prov.ParseToolCalls(resp)

		if err := conv.Append(conversation.Message{
			Role:      provider.MessageRoleAssistant,
			Content:   resp.Content,
			ToolCalls: toolCalls,
		}); err != nil {
			return "", tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending assistant message")
		}

		if len(toolCalls) == 0 {
			bus.Emit(ctx, hooks.Complete{TurnCount: count, Status: hooks.StatusSuccess})
			return resp.Content, nil
		}

		// Tool calls run strictly in provider order, never in parallel.
		for _, call := range toolCalls {
			if err := o.dispatchToolCall(ctx, call, conv, executor, bus); err != nil {
				return "", err
			}
		}
	}
}

// dispatchToolCall runs the pre-hook, the executor, and the result append
// for one tool call.
func (o *Orchestrator) dispatchToolCall(
	ctx context.Context,
	call provider.ToolCall,
	conv Conversation,
	executor *Executor,
	bus hooks.Notifier,
) error {
	verdict := bus.Emit(ctx, hooks.ToolPre{
		ToolName:   call.Name,
		ToolInput:  call.Arguments,
		ToolCallID: call.ID,
	})

	var resultText string
	var postVerdict hooks.Verdict

	switch verdict.Action {
	case hooks.ActionDeny:
		// The tool never executes; the denial stands in as its result.
		resultText = "Tool blocked by hook: " + verdict.Reason
		o.log.Info("tool denied by hook", "tool", call.Name, "reason", verdict.Reason)

	case hooks.ActionInjectContext:
		if err := o.appendInjection(conv, verdict); err != nil {
			return err
		}
		var err error
		resultText, postVerdict, err = executor.Execute(ctx, call)
		if err != nil {
			return err
		}

	default:
		var err error
		resultText, postVerdict, err = executor.Execute(ctx, call)
		if err != nil {
			return err
		}
	}

	if err := conv.Append(conversation.Message{
		Role:       provider.MessageRoleTool,
		Content:    resultText,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}); err != nil {
		return tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending tool result")
	}

	// The post-execution verdict can only shape future iterations: an
	// injection lands before the next provider call, and a deny is
	// advisory because the call already ran.
	switch postVerdict.Action {
	case hooks.ActionInjectContext:
		if err := o.appendInjection(conv, postVerdict); err != nil {
			return err
		}
	case hooks.ActionDeny:
		o.log.Warn("advisory deny after tool execution", "tool", call.Name, "reason", postVerdict.Reason)
	}

	return nil
}

func (o *Orchestrator) appendInjection(conv Conversation, verdict hooks.Verdict) error {
	role := verdict.InjectionRole
	if role == "" {
		role = provider.MessageRoleSystem
	}
	if err := conv.Append(conversation.Message{
		Role:    role,
		Content: verdict.Injection,
	}); err != nil {
		return tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending injected context")
	}
	return nil
}

// selectProvider returns the configured default provider, or the first
// registered provider when no default is set.
func (o *Orchestrator) selectProvider(providers ProviderSet) (string, provider.Provider, error) {
	if o.defaultProvider != "" {
		p, err := providers.Get(o.defaultProvider)
		if err != nil {
			return "", nil, err
		}
		return o.defaultProvider, p, nil
	}
	return providers.First()
}

func (o *Orchestrator) injectWarning(conv Conversation, count int) error {
	percentage := count * 100 / o.maxIterations
	warning := fmt.Sprintf(warningFormat, count, o.maxIterations, percentage)

	if err := conv.Append(conversation.Message{
		Role:    provider.MessageRoleSystem,
		Content: warning,
	}); err != nil {
		return tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending iteration warning")
	}

	o.log.Info("injected iteration warning", "iteration", count, "max_iterations", o.maxIterations)
	return nil
}

// wrapUp handles the iteration ceiling: it appends a termination message,
// issues one final completion with tools disabled to force a summary, and
// returns that text. A failure here degrades to a fixed failure string; the
// invocation still terminates normally.
func (o *Orchestrator) wrapUp(
	ctx context.Context,
	conv Conversation,
	providerName string,
	prov provider.Provider,
	bus hooks.Notifier,
	count int,
) (string, error) {
	if err := conv.Append(conversation.Message{
		Role:    provider.MessageRoleSystem,
		Content: fmt.Sprintf(terminationFormat, o.maxIterations),
	}); err != nil {
		return "", tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending termination message")
	}

	messages := conv.MessagesForRequest()
	bus.Emit(ctx, hooks.ProviderRequest{
		Provider:  providerName,
		Messages:  messages,
		Iteration: count,
		WrapUp:    true,
	})

	resp, err := prov.Complete(ctx, provider.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Options:  provider.ChatOptions{DisableTools: true},
	})
	if err != nil {
		o.log.Error("wrap-up completion failed", "provider", providerName, "error", err)
		bus.Emit(ctx, hooks.Complete{TurnCount: count, Status: hooks.StatusError})
		return fmt.Sprintf(wrapUpFailureFormat, err.Error()), nil
	}

	bus.Emit(ctx, hooks.ProviderResponse{
		Provider: providerName,
		Content:  resp.Content,
		Usage:    resp.Usage,
	})

	if err := conv.Append(conversation.Message{
		Role:    provider.MessageRoleAssistant,
		Content: resp.Content,
	}); err != nil {
		return "", tethererr.Wrapf(err, tethererr.CodeOrchestratorLoopFailure, "appending wrap-up response")
	}

	bus.Emit(ctx, hooks.Complete{TurnCount: count, Status: hooks.StatusIncomplete})
	return resp.Content, nil
}
