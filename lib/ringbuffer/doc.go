// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ringbuffer implements the fixed-capacity record queue that
// each logd session owns.
//
// A [RingBuffer] has exactly two call sites: the session's IPC reader,
// which calls [RingBuffer.Push] once per decoded LOG_RECORD frame, and
// the daemon's drain loop, which calls [RingBuffer.Drain]. One mutex
// per buffer serializes them; there is no lock shared between
// sessions.
//
// When a push would exceed capacity the configured [Policy] decides
// what is lost:
//
//   - [DropOldest] evicts the oldest buffered record and admits the new one.
//   - [DropNewest] rejects the incoming record.
//   - [BlockWithTimeout] waits up to the configured timeout for the
//     drain loop to make room, then rejects the incoming record.
//
// Every loss increments the buffer's dropped counter and is reported
// to the caller as an [*OverflowError]. Overflow is a counted
// condition, not a failure of the session.
package ringbuffer
