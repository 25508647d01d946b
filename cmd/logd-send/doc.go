// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Logd-send writes records to a running logd. Each line of standard
// input becomes one record; with positional arguments, the arguments
// joined by spaces form a single record.
//
//	make 2>&1 | logd-send --tag build --level debug
//	logd-send --tag deploy --level warn rollout paused
//
// By default it waits for the daemon to acknowledge that every record
// is on disk before exiting.
package main
