// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Logd is a centralized logging daemon. Client processes connect over a
// unix socket, identify themselves with a HELLO frame, and stream
// LOG_RECORD frames. Each session buffers records in its own bounded
// ring buffer; a single drain loop moves them into one shared log file
// in batches, so the file always holds whole batches and each session's
// records stay in the order the client sent them.
//
// The log file rotates by size, by age, or both, into a numbered chain
// (app.log.1 is the newest) optionally compressed with zstd or lz4. At
// startup the chain left by a previous run is repaired before the first
// write.
//
// Shutdown on SIGINT or SIGTERM stops accepting connections, closes
// every session, drains buffered records within shutdown_grace, and
// syncs the file.
//
// Usage:
//
//	logd [--config path] [--socket-path path] [--log-path path]
//	     [--max-file-size size] [--metrics-address host:port]
//	     [--log-level level] [--log-format json|text] [--version]
//
// Without --config, the file named by $LOGD_CONFIG is read when set;
// otherwise built-in defaults apply. A configuration error exits with
// status 78.
package main
