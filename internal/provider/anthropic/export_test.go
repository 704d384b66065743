// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package anthropic

// Exposed for white-box testing.
var (
	ConvertMessages = convertMessages
	ExtractSchema   = extractSchema
	BuildParams     = buildParams
)
