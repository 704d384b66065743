// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package loopdetect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tether-dev/tether/internal/hooks"
	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Action selects what a Detector does when it flags a pattern.
type Action string

const (
	// ActionWarn injects a system-role guidance message before the next
	// provider call. This is the default.
	ActionWarn Action = "warn"

	// ActionDeny returns a deny verdict. The detector only observes
	// tool:post, so the triggering call has already run; the verdict is
	// advisory for future calls.
	ActionDeny Action = "deny"

	// ActionLog records the detection and injects nothing.
	ActionLog Action = "log"
)

const guidanceFormat = `**Repetitive Pattern Detected**

%s

This may indicate an infinite loop. Consider:
- Is this task making measurable progress?
- Should you try a different approach?
- Should you summarize results and return to the user?`

// Config configures a Detector.
type Config struct {
	// WindowSize is the number of recent calls analyzed (default 10).
	WindowSize int

	// SimilarityThreshold is the pattern match threshold. Nil takes the
	// default (0.85); an explicit zero is honored and matches everything.
	SimilarityThreshold *float64

	// OnDetect selects the escalation policy (default ActionWarn).
	OnDetect Action

	// ApplyToSubSessions includes calls originating in sub-sessions;
	// by default they are skipped.
	ApplyToSubSessions bool

	Logger *slog.Logger
}

// Detector observes tool:post events and escalates at most once per
// instance. The window and one-shot flag are per-instance mutable state:
// concurrent conversations must each own their own Detector.
type Detector struct {
	window              *Window
	similarityThreshold float64
	onDetect            Action
	applyToSubSessions  bool
	alreadyWarned       bool
	log                 *slog.Logger
}

// New creates a Detector. Zero-value config fields take defaults.
func New(cfg Config) (*Detector, error) {
	threshold := DefaultSimilarityThreshold
	if cfg.SimilarityThreshold != nil {
		threshold = *cfg.SimilarityThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, tethererr.Errorf(
			tethererr.CodeDetectorConfigInvalid,
			"similarity threshold must be in [0, 1], got %g", threshold,
		)
	}

	action := cfg.OnDetect
	if action == "" {
		action = ActionWarn
	}
	switch action {
	case ActionWarn, ActionDeny, ActionLog:
	default:
		return nil, tethererr.Errorf(
			tethererr.CodeDetectorConfigInvalid,
			"unknown detection action %q", action,
		)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Detector{
		window:              NewWindow(cfg.WindowSize),
		similarityThreshold: threshold,
		onDetect:            action,
		applyToSubSessions:  cfg.ApplyToSubSessions,
		log:                 log,
	}, nil
}

// Register subscribes the detector to tool:post events on the bus.
func (d *Detector) Register(bus *hooks.Bus) {
	bus.Subscribe(hooks.KindToolPost, d.HandleToolPost)
}

// AlreadyWarned reports whether the one-shot escalation has fired.
func (d *Detector) AlreadyWarned() bool {
	return d.alreadyWarned
}

// HandleToolPost is a hooks.Handler for tool:post events. It pushes the
// call's signature into the window, classifies, and escalates once per
// detector lifetime.
func (d *Detector) HandleToolPost(_ context.Context, ev hooks.Event) (hooks.Verdict, error) {
	post, ok := ev.(hooks.ToolPost)
	if !ok {
		return hooks.Continue(), nil
	}

	if post.ParentID != "" && !d.applyToSubSessions {
		return hooks.Continue(), nil
	}

	d.window.Push(ComputeSignature(post.ToolName, post.ToolInput))

	verdict := Classify(d.window.Entries(), d.similarityThreshold)
	if !verdict.Pattern || d.alreadyWarned {
		return hooks.Continue(), nil
	}

	d.alreadyWarned = true
	d.log.Warn("loop detected", "description", verdict.Description, "action", string(d.onDetect))

	return d.escalate(verdict.Description), nil
}

func (d *Detector) escalate(description string) hooks.Verdict {
	switch d.onDetect {
	case ActionDeny:
		return hooks.Verdict{
			Action: hooks.ActionDeny,
			Reason: "Loop detected - blocking to prevent infinite execution: " + description,
		}
	case ActionLog:
		return hooks.Continue()
	default:
		return hooks.Verdict{
			Action:        hooks.ActionInjectContext,
			Injection:     guidanceText(description),
			InjectionRole: "system",
		}
	}
}

func guidanceText(description string) string {
	return fmt.Sprintf(guidanceFormat, description)
}
