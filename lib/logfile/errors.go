// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import "fmt"

// IOError reports a batch dropped after every write attempt failed.
type IOError struct {
	Path     string
	Attempts int
	// Records is the number of records in the dropped batch.
	Records int
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("writing %d records to %s failed after %d attempts: %v", e.Records, e.Path, e.Attempts, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RotationError reports a rotation step that failed. The manager has
// rolled back what it could and keeps writing to the previous file.
type RotationError struct {
	// Step names the failed operation ("remove", "shift", "rename
	// active", "open active", "sync").
	Step string
	Path string
	Err  error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("rotation %s %s: %v", e.Step, e.Path, e.Err)
}

func (e *RotationError) Unwrap() error { return e.Err }
