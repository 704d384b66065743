// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package tool

import "fmt"

// EmptyOutputSentinel is the text substituted for results with no output so
// the model never receives an empty tool message.
const EmptyOutputSentinel = "(empty output)"

// ResultKind tags the shape of a tool result.
type ResultKind int

const (
	// KindText is a plain text result.
	KindText ResultKind = iota
	// KindCommand is a stdout/stderr pair from a command-style tool.
	KindCommand
	// KindOpaque is an arbitrary value rendered via %v.
	KindOpaque
)

// Result is the tagged result type produced by tool execution. Exactly the
// fields of the tagged variant are meaningful.
type Result struct {
	Kind   ResultKind
	Text   string
	Stdout string
	Stderr string
	Value  any
}

// TextResult wraps plain text.
func TextResult(text string) Result {
	return Result{Kind: KindText, Text: text}
}

// CommandResult wraps a stdout/stderr pair.
func CommandResult(stdout, stderr string) Result {
	return Result{Kind: KindCommand, Stdout: stdout, Stderr: stderr}
}

// OpaqueResult wraps an arbitrary value.
func OpaqueResult(value any) Result {
	return Result{Kind: KindOpaque, Value: value}
}

// Render normalizes the result to the single text blob that becomes the
// tool-role message content. Empty output maps to EmptyOutputSentinel.
func (r Result) Render() string {
	switch r.Kind {
	case KindCommand:
		var out string
		if r.Stdout != "" {
			out = r.Stdout
		}
		if r.Stderr != "" {
			if out != "" {
				out += "\n"
			}
			out += "stderr: " + r.Stderr
		}
		if out == "" {
			return EmptyOutputSentinel
		}
		return out
	case KindOpaque:
		if r.Value == nil {
			return EmptyOutputSentinel
		}
		rendered := fmt.Sprintf("%v", r.Value)
		if rendered == "" {
			return EmptyOutputSentinel
		}
		return rendered
	default:
		if r.Text == "" {
			return EmptyOutputSentinel
		}
		return r.Text
	}
}
