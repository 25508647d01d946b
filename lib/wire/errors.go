// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "errors"

// Sentinel kinds carried by IPCError. Match with errors.Is.
var (
	ErrMalformed       = errors.New("malformed frame")
	ErrOversized       = errors.New("oversized frame")
	ErrUnexpectedFrame = errors.New("unexpected frame")
	ErrVersionMismatch = errors.New("protocol version mismatch")
	ErrSessionLimit    = errors.New("session limit exceeded")
)

// IPCError is a protocol failure confined to one connection.
type IPCError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	Err  error
}

func (e *IPCError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *IPCError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
