// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every logd component that
// waits: the drain loop ticker, the idle-session reaper, ring buffer
// pushes under the block-with-timeout policy, and the file manager's
// write retry backoff.
//
// Production code calls [Real]. Tests call [Fake] and move time with
// [FakeClock.Advance]; [FakeClock.WaitForTimers] blocks until the code
// under test has registered its timers, so tests never sleep.
package clock
