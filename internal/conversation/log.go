// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package conversation holds the in-memory message log for one orchestrator
// invocation. The log is append-only: past entries are never mutated, and
// only the orchestration loop writes to it.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tether-dev/tether/internal/provider"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Message is a single conversation entry.
type Message struct {
	ID         string
	Role       provider.MessageRole
	Content    string
	ToolCallID string
	ToolName   string
	ToolCalls  []provider.ToolCall
	CreatedAt  time.Time
}

// Log is an append-only conversation log. A mutex guards reads taken from
// other goroutines (observers); writes come from the single orchestrator
// path.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message to the log, assigning an ID and timestamp when
// absent. Tool-role messages must carry a tool call ID so the next provider
// request can thread the result back to its originating call.
func (l *Log) Append(msg Message) error {
	if msg.Role == "" {
		return tethererr.New(tethererr.CodeConversationAppendInvalid, "message role is required")
	}
	if msg.Role == provider.MessageRoleTool && msg.ToolCallID == "" {
		return tethererr.New(
			tethererr.CodeConversationAppendInvalid,
			"tool message missing tool call id",
			tethererr.FieldTool(msg.ToolName),
		)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	return nil
}

// MessagesForRequest returns the conversation formatted for a provider
// request, in append order.
func (l *Log) MessagesForRequest() []provider.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]provider.Message, 0, len(l.messages))
	for _, m := range l.messages {
		out = append(out, provider.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
			ToolCalls:  append([]provider.ToolCall(nil), m.ToolCalls...),
		})
	}
	return out
}

// Messages returns a snapshot copy of the raw log entries.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.messages...)
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
