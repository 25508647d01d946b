// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/logd/lib/clock"
)

// RotationMode selects which thresholds trigger rotation.
type RotationMode uint8

const (
	// RotateSize rotates when the active file reaches MaxFileSize.
	RotateSize RotationMode = iota
	// RotateTime rotates a non-empty active file once it has been
	// open for Interval.
	RotateTime
	// RotateHybrid applies both thresholds.
	RotateHybrid
)

func (mode RotationMode) String() string {
	switch mode {
	case RotateSize:
		return "size"
	case RotateTime:
		return "time"
	case RotateHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("mode(%d)", uint8(mode))
	}
}

// ParseRotationMode parses "size", "time", or "hybrid".
func ParseRotationMode(name string) (RotationMode, error) {
	switch name {
	case "size", "":
		return RotateSize, nil
	case "time":
		return RotateTime, nil
	case "hybrid":
		return RotateHybrid, nil
	default:
		return 0, fmt.Errorf("unknown rotation mode %q (want size, time, or hybrid)", name)
	}
}

func (mode RotationMode) MarshalText() ([]byte, error) { return []byte(mode.String()), nil }

func (mode *RotationMode) UnmarshalText(text []byte) error {
	parsed, err := ParseRotationMode(string(text))
	if err != nil {
		return err
	}
	*mode = parsed
	return nil
}

func (mode RotationMode) checksSize() bool { return mode == RotateSize || mode == RotateHybrid }
func (mode RotationMode) checksTime() bool { return mode == RotateTime || mode == RotateHybrid }

// Compression selects the codec applied to rotated files.
type Compression uint8

const (
	CompressNone Compression = iota
	CompressZstd
	CompressLZ4
)

func (compression Compression) String() string {
	switch compression {
	case CompressNone:
		return "none"
	case CompressZstd:
		return "zstd"
	case CompressLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(compression))
	}
}

// Extension returns the file suffix for compressed rotated files, or
// "" for CompressNone.
func (compression Compression) Extension() string {
	switch compression {
	case CompressZstd:
		return ".zst"
	case CompressLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompression parses "none", "zstd", or "lz4".
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressNone, nil
	case "zstd":
		return CompressZstd, nil
	case "lz4":
		return CompressLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", name)
	}
}

func (compression Compression) MarshalText() ([]byte, error) {
	return []byte(compression.String()), nil
}

func (compression *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*compression = parsed
	return nil
}

// Options configures a Manager.
type Options struct {
	// Path is the active file. Rotated files are Path.1 ... Path.N.
	Path string

	// MaxFileSize is the size threshold in bytes. Must be positive.
	MaxFileSize int64

	// MaxFiles is the number of rotated files kept. Must be at least 1.
	MaxFiles int

	Mode RotationMode

	// Interval is the time threshold for RotateTime and RotateHybrid.
	Interval time.Duration

	Compression Compression

	// WriteRetries is how many times a failed write is retried before
	// the batch is dropped.
	WriteRetries int

	// RetryBackoff is the first retry delay; each retry doubles it up
	// to maxRetryBackoff.
	RetryBackoff time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

const maxRetryBackoff = 2 * time.Second

func (options *Options) validate() error {
	if options.Path == "" {
		return fmt.Errorf("logfile: path is required")
	}
	if options.MaxFileSize <= 0 {
		return fmt.Errorf("logfile: max file size must be positive, got %d", options.MaxFileSize)
	}
	if options.MaxFiles < 1 {
		return fmt.Errorf("logfile: max files must be at least 1, got %d", options.MaxFiles)
	}
	if options.Mode.checksTime() && options.Interval <= 0 {
		return fmt.Errorf("logfile: %s rotation requires a positive interval", options.Mode)
	}
	if options.WriteRetries < 0 {
		return fmt.Errorf("logfile: write retries must not be negative, got %d", options.WriteRetries)
	}
	if options.RetryBackoff <= 0 {
		options.RetryBackoff = 50 * time.Millisecond
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return nil
}
