// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{input: "verbose", want: LevelVerbose},
		{input: "D", want: LevelDebug},
		{input: " info ", want: LevelInfo},
		{input: "warning", want: LevelWarn},
		{input: "error", want: LevelError},
		{input: "assert", want: LevelFatal},
		{input: "0", want: LevelVerbose},
		{input: "2", want: LevelInfo},
		{input: " 5", want: LevelFatal},
		{input: "6", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "loud", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q): expected error, got %v", test.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestLevelLetter(t *testing.T) {
	t.Parallel()
	if got := LevelWarn.Letter(); got != 'W' {
		t.Errorf("LevelWarn.Letter() = %q, want 'W'", got)
	}
	if got := Level(42).Letter(); got != '?' {
		t.Errorf("Level(42).Letter() = %q, want '?'", got)
	}
	if Level(6).Valid() {
		t.Error("Level(6) should not be valid")
	}
}

func TestAppendLine(t *testing.T) {
	t.Parallel()
	timestamp := time.Date(2026, 10, 19, 12, 30, 45, 123456000, time.UTC).UnixNano()

	got := string(AppendLine(nil, 1234, Record{
		Timestamp: timestamp,
		Level:     LevelInfo,
		ThreadID:  5678,
		Tag:       "camera",
		Message:   []byte("opened device"),
	}))
	want := "2026-10-19 12:30:45.123456  1234  5678 I camera: opened device\n"
	if got != want {
		t.Errorf("AppendLine:\n got %q\nwant %q", got, want)
	}
}

func TestAppendLineMultiline(t *testing.T) {
	t.Parallel()
	got := string(AppendLine(nil, 7, Record{
		Level:   LevelError,
		Tag:     "net",
		Message: []byte("first\r\nsecond\n\n"),
	}))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.HasSuffix(lines[0], " E net: first") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], " E net: second") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestAppendLineEmptyMessage(t *testing.T) {
	t.Parallel()
	got := string(AppendLine(nil, 1, Record{Tag: "t"}))
	if strings.Count(got, "\n") != 1 || !strings.HasSuffix(got, "t: \n") {
		t.Errorf("empty message rendered as %q", got)
	}
}

func TestFormatBatchPreservesOrder(t *testing.T) {
	t.Parallel()
	batch := Batch{PID: 3, Records: []Record{
		{Tag: "a", Message: []byte("one")},
		{Tag: "a", Message: []byte("two")},
		{Tag: "a", Message: []byte("three")},
	}}
	out := string(FormatBatch(batch))
	first := strings.Index(out, "one")
	second := strings.Index(out, "two")
	third := strings.Index(out, "three")
	if !(first < second && second < third) {
		t.Errorf("records out of order: %q", out)
	}
}
