// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package loopdetect_test

import (
	"strconv"
	"testing"

	"github.com/tether-dev/tether/internal/loopdetect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowEvictsOldest(t *testing.T) {
	w := loopdetect.NewWindow(3)
	for i := 0; i < 5; i++ {
		w.Push(loopdetect.Signature{Tool: "t", Fingerprint: strconv.Itoa(i)})
	}

	entries := w.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].Fingerprint)
	assert.Equal(t, "4", entries[2].Fingerprint)
}

func TestWindowDefaultCapacity(t *testing.T) {
	w := loopdetect.NewWindow(0)
	assert.Equal(t, loopdetect.DefaultWindowSize, w.Capacity())
}

func TestWindowEntriesIsCopy(t *testing.T) {
	w := loopdetect.NewWindow(2)
	w.Push(loopdetect.Signature{Tool: "a", Fingerprint: "1"})

	entries := w.Entries()
	entries[0].Tool = "mutated"

	assert.Equal(t, "a", w.Entries()[0].Tool)
}
