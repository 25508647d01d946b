// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logclient

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread running the caller.
// Goroutines migrate between threads, so this identifies where the
// record was produced, not which goroutine produced it.
func currentThreadID() uint32 {
	return uint32(unix.Gettid())
}
