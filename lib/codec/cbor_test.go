// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	t.Parallel()
	first, err := Marshal(map[string]any{"version": 1, "pid": 42, "tag": "camera"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(map[string]any{"tag": "camera", "pid": 42, "version": 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("map key order changed encoding:\n%x\n%x", first, second)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	t.Parallel()
	data, err := Marshal(map[string]any{"pid": 7, "future_field": "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded struct {
		PID int32 `cbor:"pid"`
	}
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.PID != 7 {
		t.Errorf("PID = %d, want 7", decoded.PID)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	t.Parallel()
	var decoded struct{}
	if err := Unmarshal([]byte{0xff, 0x00}, &decoded); err == nil {
		t.Error("Unmarshal accepted malformed CBOR")
	}
}
