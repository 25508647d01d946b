// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/docker/go-units"
)

// ByteSize is a size in bytes that reads human-readable units: a plain
// count ("1000"), or binary multiples ("512k", "4MiB", "1g").
//
// ByteSize also satisfies pflag.Value so it can back a command-line
// flag directly.
type ByteSize int64

func (size ByteSize) String() string {
	return units.BytesSize(float64(size))
}

func (size ByteSize) MarshalText() ([]byte, error) {
	return []byte(size.String()), nil
}

func (size *ByteSize) UnmarshalText(text []byte) error {
	return size.Set(string(text))
}

// Set parses value into size.
func (size *ByteSize) Set(value string) error {
	parsed, err := units.RAMInBytes(value)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", value, err)
	}
	*size = ByteSize(parsed)
	return nil
}

// Type names the flag value type in pflag usage output.
func (size *ByteSize) Type() string { return "bytes" }
