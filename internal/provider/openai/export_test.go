// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package openai

// Exposed for white-box testing.
var (
	ConvertMessages = convertMessages
	ConvertTools    = convertTools
	BuildParams     = buildParams
)
