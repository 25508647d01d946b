// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logfile owns logd's on-disk output: one active file and a
// bounded chain of rotated files.
//
//	app.log      active, appended to by WriteBatch
//	app.log.1    newest rotated file
//	...
//	app.log.N    oldest rotated file, N = MaxFiles
//
// Rotated files may carry a compression suffix (app.log.2.zst,
// app.log.3.lz4) when a [Compression] codec is configured; the index
// is what orders the chain.
//
// A [Manager] serializes writes and rotations under one mutex, so a
// batch is never split across a rotation boundary: when a batch would
// push a non-empty active file past MaxFileSize the manager rotates
// first, and after every batch it evaluates [Manager.MaybeRotate].
// The daemon also calls MaybeRotate from a timer for time-based
// rotation.
//
// Rotation shifts the chain by renames, deleting the oldest file when
// the chain is full, moves the active file to index 1, and opens a
// fresh active file. Any failed step is rolled back and reported as a
// [*RotationError]; the previous active handle keeps receiving writes.
// Compression of the newly rotated file runs in the background and
// never blocks writes.
//
// Write failures are retried with exponential backoff. Bytes from a
// failed partial write are truncated away before the next attempt so
// no torn line survives. When every attempt fails the batch is dropped,
// counted, and returned as an [*IOError].
//
// [Open] rebuilds the chain from whatever is on disk: it removes
// abandoned compression temporaries, closes index gaps left by a crash
// mid-rotation, deletes files beyond MaxFiles, and appends to the
// existing active file.
package logfile
