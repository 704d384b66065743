// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package provider

import (
	"context"
)

// Provider is the core interface for LLM completion providers.
// Complete is a single blocking request/response exchange; the orchestrator
// never issues concurrent calls against one provider within an invocation.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ParseToolCalls(resp *ChatResponse) []ToolCall
	Close() error
}

// ChatRequest represents a request to the LLM.
type ChatRequest struct {
	Model    string
	Messages []Message
	Tools    []ToolDefinition
	Options  ChatOptions
}

// ChatOptions contains model configuration.
type ChatOptions struct {
	Temperature *float32
	MaxTokens   int

	// DisableTools suppresses tool offering for this request even when
	// Tools is populated. Used by the wrap-up call at the iteration
	// ceiling to force a plain text response.
	DisableTools bool
}

// Message represents a conversation message.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCallID string
	ToolName   string
	ToolCalls  []ToolCall
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
	MessageRoleTool      MessageRole = "tool"
)

// ToolDefinition describes a tool available to the agent.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ChatResponse is a completed (non-streaming) provider response.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *Usage
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
