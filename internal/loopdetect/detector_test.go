// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package loopdetect_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/tether-dev/tether/internal/hooks"
	"github.com/tether-dev/tether/internal/loopdetect"
	tethererr "github.com/tether-dev/tether/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetector(t *testing.T, cfg loopdetect.Config) *loopdetect.Detector {
	t.Helper()
	d, err := loopdetect.New(cfg)
	require.NoError(t, err)
	return d
}

func postEvent(tool string, args map[string]any) hooks.ToolPost {
	return hooks.ToolPost{ToolName: tool, ToolInput: args, ToolResult: "ok"}
}

func threshold(v float64) *float64 { return &v }

func feedIdentical(t *testing.T, d *loopdetect.Detector, n int) hooks.Verdict {
	t.Helper()
	last := hooks.Continue()
	for i := 0; i < n; i++ {
		v, err := d.HandleToolPost(context.Background(), postEvent("shell", map[string]any{"command": "ls"}))
		require.NoError(t, err)
		last = v
	}
	return last
}

func TestDetectorWarnsOnFifthIdenticalCall(t *testing.T) {
	d := newDetector(t, loopdetect.Config{})

	v := feedIdentical(t, d, 4)
	assert.Equal(t, hooks.ActionContinue, v.Action, "four calls are below the pattern minimum")

	v = feedIdentical(t, d, 1)
	assert.Equal(t, hooks.ActionInjectContext, v.Action)
	assert.Equal(t, "system", string(v.InjectionRole))
	assert.Contains(t, v.Injection, "Same tool 'shell' called 5 times with identical arguments")
}

func TestDetectorEscalatesOnlyOnce(t *testing.T) {
	d := newDetector(t, loopdetect.Config{})

	feedIdentical(t, d, 5)
	require.True(t, d.AlreadyWarned())

	// A second qualifying pattern within the same instance stays silent.
	v := feedIdentical(t, d, 5)
	assert.Equal(t, hooks.ActionContinue, v.Action)
	assert.True(t, d.AlreadyWarned())
}

func TestDetectorDenyAction(t *testing.T) {
	d := newDetector(t, loopdetect.Config{OnDetect: loopdetect.ActionDeny})

	v := feedIdentical(t, d, 5)
	assert.Equal(t, hooks.ActionDeny, v.Action)
	assert.Contains(t, v.Reason, "Loop detected")
	assert.Contains(t, v.Reason, "shell")
}

func TestDetectorLogActionHasNoConversationEffect(t *testing.T) {
	d := newDetector(t, loopdetect.Config{OnDetect: loopdetect.ActionLog})

	v := feedIdentical(t, d, 5)
	assert.Equal(t, hooks.ActionContinue, v.Action)
	assert.True(t, d.AlreadyWarned(), "log-only detections still consume the one-shot")
}

func TestDetectorSkipsSubSessionCalls(t *testing.T) {
	d := newDetector(t, loopdetect.Config{})

	for i := 0; i < 10; i++ {
		ev := postEvent("shell", map[string]any{"command": "ls"})
		ev.ParentID = "session-parent"
		v, err := d.HandleToolPost(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, hooks.ActionContinue, v.Action)
	}
	assert.False(t, d.AlreadyWarned())
}

func TestDetectorIncludesSubSessionsWhenConfigured(t *testing.T) {
	d := newDetector(t, loopdetect.Config{ApplyToSubSessions: true})

	var last hooks.Verdict
	for i := 0; i < 5; i++ {
		ev := postEvent("shell", map[string]any{"command": "ls"})
		ev.ParentID = "session-parent"
		v, err := d.HandleToolPost(context.Background(), ev)
		require.NoError(t, err)
		last = v
	}
	assert.Equal(t, hooks.ActionInjectContext, last.Action)
}

func TestDetectorNoPatternForDistinctCalls(t *testing.T) {
	d := newDetector(t, loopdetect.Config{})

	for i := 0; i < 10; i++ {
		tool := "read_file"
		if i%2 == 1 {
			tool = "shell"
		}
		v, err := d.HandleToolPost(context.Background(), postEvent(tool, map[string]any{"n": i}))
		require.NoError(t, err)
		assert.Equal(t, hooks.ActionContinue, v.Action)
	}
	assert.False(t, d.AlreadyWarned())
}

func TestDetectorViaBus(t *testing.T) {
	bus := hooks.NewBus(nil)
	d := newDetector(t, loopdetect.Config{})
	d.Register(bus)

	var verdict hooks.Verdict
	for i := 0; i < 5; i++ {
		verdict = bus.Emit(context.Background(), postEvent("shell", map[string]any{"command": "ls"}))
	}
	assert.Equal(t, hooks.ActionInjectContext, verdict.Action)
}

func TestDetectorConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  loopdetect.Config
	}{
		{"threshold above one", loopdetect.Config{SimilarityThreshold: threshold(1.5)}},
		{"negative threshold", loopdetect.Config{SimilarityThreshold: threshold(-0.1)}},
		{"unknown action", loopdetect.Config{OnDetect: loopdetect.Action("explode")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loopdetect.New(tt.cfg)
			require.Error(t, err)
			assert.True(t, tethererr.HasCode(err, tethererr.CodeDetectorConfigInvalid),
				"got %s", tethererr.CodeOf(err))
		})
	}
}

func TestDetectorHonorsExplicitZeroThreshold(t *testing.T) {
	d := newDetector(t, loopdetect.Config{SimilarityThreshold: threshold(0)})

	// Five completely unrelated calls: pairwise similarity averages 0.0,
	// which still meets an explicit zero threshold. A detector that swapped
	// in the 0.85 default would stay silent here.
	var last hooks.Verdict
	for i := 0; i < 5; i++ {
		v, err := d.HandleToolPost(context.Background(), postEvent(fmt.Sprintf("tool-%d", i), map[string]any{"n": i}))
		require.NoError(t, err)
		last = v
	}
	assert.Equal(t, hooks.ActionInjectContext, last.Action)
	assert.True(t, d.AlreadyWarned())
}

func TestDetectorIgnoresForeignEvents(t *testing.T) {
	d := newDetector(t, loopdetect.Config{})

	v, err := d.HandleToolPost(context.Background(), hooks.ToolError{ToolName: "shell", Err: fmt.Errorf("boom")})
	require.NoError(t, err)
	assert.Equal(t, hooks.ActionContinue, v.Action)
}
