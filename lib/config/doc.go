// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads logd's daemon configuration.
//
// Configuration is read from a single file named by either the
// LOGD_CONFIG environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no search path. Files ending
// in .json or .jsonc are parsed as JSON with comments; everything else
// is YAML. Unknown keys are errors so a typo never silently falls back
// to a default.
//
// Sizes accept human-readable units ("4MiB", "512k", or a plain byte
// count). Durations use Go syntax ("250ms", "5m"); flush_interval_ms
// stays an integer millisecond count.
//
// ${VAR} and ${VAR:-default} patterns are expanded in log_path and
// socket_path after loading. No other environment variables override
// config values.
//
// Key exports:
//
//   - [Config] -- every daemon option
//   - [Default] -- the values used for keys the file omits
//   - [Load] and [LoadFile] -- the two entry points
//   - [Config.Validate] -- returns a [*ConfigError] listing every problem
package config
