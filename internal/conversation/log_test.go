// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package conversation_test

import (
	"testing"

	"github.com/tether-dev/tether/internal/conversation"
	"github.com/tether-dev/tether/internal/provider"
	tethererr "github.com/tether-dev/tether/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendAssignsIDAndTimestamp(t *testing.T) {
	log := conversation.NewLog()

	require.NoError(t, log.Append(conversation.Message{
		Role:    provider.MessageRoleUser,
		Content: "hello",
	}))

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func TestLogAppendPreservesOrder(t *testing.T) {
	log := conversation.NewLog()

	roles := []provider.MessageRole{
		provider.MessageRoleUser,
		provider.MessageRoleAssistant,
		provider.MessageRoleSystem,
	}
	for i, role := range roles {
		require.NoError(t, log.Append(conversation.Message{
			Role:    role,
			Content: string(rune('a' + i)),
		}))
	}

	out := log.MessagesForRequest()
	require.Len(t, out, 3)
	for i, role := range roles {
		assert.Equal(t, role, out[i].Role)
	}
}

func TestLogRejectsMissingRole(t *testing.T) {
	log := conversation.NewLog()

	err := log.Append(conversation.Message{Content: "orphan"})
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeConversationAppendInvalid))
	assert.Equal(t, 0, log.Len())
}

func TestLogRejectsToolMessageWithoutCallID(t *testing.T) {
	log := conversation.NewLog()

	err := log.Append(conversation.Message{
		Role:     provider.MessageRoleTool,
		ToolName: "shell",
		Content:  "output",
	})
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeConversationAppendInvalid))
}

func TestLogToolMessageCorrelation(t *testing.T) {
	log := conversation.NewLog()

	require.NoError(t, log.Append(conversation.Message{
		Role:       provider.MessageRoleTool,
		ToolCallID: "call-1",
		ToolName:   "shell",
		Content:    "done",
	}))

	out := log.MessagesForRequest()
	require.Len(t, out, 1)
	assert.Equal(t, "call-1", out[0].ToolCallID)
	assert.Equal(t, "shell", out[0].ToolName)
}

func TestMessagesForRequestReturnsSnapshot(t *testing.T) {
	log := conversation.NewLog()
	require.NoError(t, log.Append(conversation.Message{
		Role:    provider.MessageRoleUser,
		Content: "one",
	}))

	snap := log.MessagesForRequest()
	require.NoError(t, log.Append(conversation.Message{
		Role:    provider.MessageRoleAssistant,
		Content: "two",
	}))

	assert.Len(t, snap, 1, "earlier snapshot must not grow")
	assert.Len(t, log.MessagesForRequest(), 2)
}
