// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

// Package loopdetect flags repetitive tool-call behavior from a bounded
// sliding window of call signatures.
package loopdetect

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
)

// Signature fingerprints one tool call for repetition comparison. Two
// signatures are equal only when both the tool name and the argument
// fingerprint match.
type Signature struct {
	Tool        string
	Fingerprint string
}

// ComputeSignature canonically serializes the argument map (encoding/json
// emits map keys in sorted order) and hashes the serialization. Arguments
// that cannot be serialized fall back to hashing their %v rendering; that
// fallback is lossy — two argument sets with the same text rendering but
// different structure collide.
func ComputeSignature(tool string, args map[string]any) Signature {
	var payload string
	if data, err := json.Marshal(args); err == nil {
		payload = string(data)
	} else {
		payload = fmt.Sprintf("%v", args)
	}

	h := fnv.New64a()
	h.Write([]byte(payload))

	return Signature{
		Tool:        tool,
		Fingerprint: strconv.FormatUint(h.Sum64(), 16),
	}
}
