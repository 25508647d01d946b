// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by logd's package tests.
//
// [SocketDir] returns a short directory under /tmp for unix sockets,
// whose paths are limited to 108 bytes; t.TempDir() paths often exceed
// that. [RequireReceive] and [RequireClosed] wrap the select-with-
// timeout pattern so tests never hang on a broken goroutine; they are
// the only place tests use the wall clock.
package testutil
