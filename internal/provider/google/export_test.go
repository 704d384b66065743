// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package google

// Exposed for white-box testing.
var (
	ConvertMessages = convertMessages
	ConvertTools    = convertTools
	BuildConfig     = buildConfig
)
