// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Level is the severity of a record. The numeric values are part of
// the wire format (one byte in the LOG_RECORD payload).
type Level uint8

const (
	LevelVerbose Level = 0
	LevelDebug   Level = 1
	LevelInfo    Level = 2
	LevelWarn    Level = 3
	LevelError   Level = 4
	LevelFatal   Level = 5
)

// String returns the lower-case level name used in configuration.
func (level Level) String() string {
	switch level {
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", uint8(level))
	}
}

// Letter returns the single-character rendering used in log lines.
// Levels above fatal render as '?'.
func (level Level) Letter() byte {
	const letters = "VDIWEF"
	if int(level) < len(letters) {
		return letters[level]
	}
	return '?'
}

// Valid reports whether level is one of the defined levels.
func (level Level) Valid() bool {
	return level <= LevelFatal
}

// ParseLevel parses a level name. Accepts the full names returned by
// String, their single-letter forms, "warning", and the numeric values
// 0 through 5.
func ParseLevel(name string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if number, err := strconv.ParseUint(normalized, 10, 8); err == nil {
		if level := Level(number); level.Valid() {
			return level, nil
		}
		return 0, fmt.Errorf("log level %d out of range 0..%d", number, LevelFatal)
	}
	switch normalized {
	case "verbose", "v", "trace":
		return LevelVerbose, nil
	case "debug", "d":
		return LevelDebug, nil
	case "info", "i":
		return LevelInfo, nil
	case "warn", "warning", "w":
		return LevelWarn, nil
	case "error", "e":
		return LevelError, nil
	case "fatal", "f", "assert":
		return LevelFatal, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so levels appear by
// name in YAML configuration.
func (level Level) MarshalText() ([]byte, error) {
	return []byte(level.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (level *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*level = parsed
	return nil
}

// Record is a single log record.
type Record struct {
	// Timestamp is the client-side creation time in Unix nanoseconds.
	Timestamp int64

	Level Level

	// ThreadID is the client thread that emitted the record.
	ThreadID uint32

	// Tag is the source tag. The wire payload does not carry a tag;
	// the daemon stamps each record with the tag its session
	// declared in the handshake.
	Tag string

	Message []byte
}

// Time returns Timestamp as a time.Time in UTC.
func (r Record) Time() time.Time {
	return time.Unix(0, r.Timestamp).UTC()
}

// Batch is the unit handed from the drain loop to the file manager.
// The drain loop gives up ownership of Records when it passes a Batch
// on; the file manager may retain or discard it.
type Batch struct {
	SessionID string
	PID       int32
	Records   []Record
}
