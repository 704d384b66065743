// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package loopdetect

import "fmt"

// DefaultSimilarityThreshold is the average adjacent-pair similarity at or
// above which the recent-call tail counts as a repetitive pattern.
const DefaultSimilarityThreshold = 0.85

// minPatternLength is the minimum number of buffered calls before any
// pattern verdict is possible.
const minPatternLength = 5

// Verdict is the classifier's decision about a window of signatures.
type Verdict struct {
	Pattern     bool
	Description string
}

// Classify inspects the window contents (oldest-first) and returns a
// verdict. Two checks run in order, first match wins:
//
//  1. Exact repeat: every entry in the full window equals the first.
//  2. Similarity repeat: the average similarity of the 4 adjacent pairs in
//     the most recent 5 entries reaches the threshold.
//
// A window that is not fully identical can still trigger the similarity
// check on its last 5 entries alone. The classifier is stateless; callers
// own the window.
func Classify(entries []Signature, threshold float64) Verdict {
	if len(entries) < minPatternLength {
		return Verdict{}
	}

	first := entries[0]
	identical := 0
	for _, sig := range entries {
		if sig == first {
			identical++
		}
	}
	if identical == len(entries) {
		return Verdict{
			Pattern: true,
			Description: fmt.Sprintf(
				"Same tool '%s' called %d times with identical arguments",
				first.Tool, len(entries),
			),
		}
	}

	lastFive := entries[len(entries)-minPatternLength:]
	var total float64
	for i := 0; i < len(lastFive)-1; i++ {
		total += similarity(lastFive[i], lastFive[i+1])
	}
	avg := total / float64(len(lastFive)-1)

	if avg >= threshold {
		return Verdict{
			Pattern: true,
			Description: fmt.Sprintf(
				"Repetitive pattern detected: tool '%s' similarity=%.2f",
				lastFive[0].Tool, avg,
			),
		}
	}

	return Verdict{}
}

// similarity scores an adjacent signature pair: 1.0 for the same tool with
// the same fingerprint, 0.5 for the same tool with different arguments, 0.0
// for different tools.
func similarity(a, b Signature) float64 {
	if a.Tool != b.Tool {
		return 0.0
	}
	if a.Fingerprint == b.Fingerprint {
		return 1.0
	}
	return 0.5
}
