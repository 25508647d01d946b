// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the log record that flows through logd: the
// value a client sends in a LOG_RECORD frame, the value a session's
// ring buffer holds, and the value the file manager renders into a
// line on disk.
//
// A [Record] is immutable once constructed. Ring buffers store records
// by value and the drain path copies them into a [Batch], so no two
// components ever share a record's message slice for writing.
//
// Lines are rendered by [AppendLine] in a logcat "threadtime"-like
// layout:
//
//	2026-10-19 12:00:00.000000  1234  5678 I tag: message
//
// A message containing newlines produces one prefixed line per
// message line, so grep and tail keep working on multi-line messages.
package record
