// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers for logd binaries: the
// one place raw stderr output and os.Exit are allowed, for errors that
// happen before the structured logger exists or after it is gone.
package process
