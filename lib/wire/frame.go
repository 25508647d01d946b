// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Type identifies a frame. Values are protocol constants.
type Type byte

const (
	TypeHello     Type = 0x01
	TypeAccept    Type = 0x02
	TypeReject    Type = 0x03
	TypeLogRecord Type = 0x04
	TypeFlush     Type = 0x05
	TypeHeartbeat Type = 0x06
	TypeBye       Type = 0x07
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeAccept:
		return "ACCEPT"
	case TypeReject:
		return "REJECT"
	case TypeLogRecord:
		return "LOG_RECORD"
	case TypeFlush:
		return "FLUSH"
	case TypeHeartbeat:
		return "HEARTBEAT"
	case TypeBye:
		return "BYE"
	default:
		return fmt.Sprintf("type(0x%02x)", byte(t))
	}
}

// Valid reports whether t is a defined frame type.
func (t Type) Valid() bool {
	return t >= TypeHello && t <= TypeBye
}

// HeaderLength is the fixed frame header size: 4 bytes length plus 1
// byte type.
const HeaderLength = 5

// MaxPayload bounds a single frame's payload. A log message larger
// than this is a client bug, not something to buffer.
const MaxPayload = 1 << 20

// Frame is one protocol message.
type Frame struct {
	Type    Type
	Payload []byte
}

// WriteFrame writes frame to w as a single Write call so concurrent
// writers on a shared connection never interleave partial frames.
func WriteFrame(w io.Writer, frame Frame) error {
	if len(frame.Payload) > MaxPayload {
		return &IPCError{Kind: ErrOversized, Err: fmt.Errorf("payload length %d exceeds maximum %d", len(frame.Payload), MaxPayload)}
	}
	buffer := make([]byte, HeaderLength+len(frame.Payload))
	binary.BigEndian.PutUint32(buffer[0:4], uint32(len(frame.Payload)))
	buffer[4] = byte(frame.Type)
	copy(buffer[HeaderLength:], frame.Payload)
	if _, err := w.Write(buffer); err != nil {
		return fmt.Errorf("write %s frame: %w", frame.Type, err)
	}
	return nil
}

// ReadFrame reads one frame from r. A clean end of stream before any
// header byte returns io.EOF unwrapped; a stream cut mid-frame returns
// an error wrapping io.ErrUnexpectedEOF. Oversized lengths and unknown
// types return *IPCError without reading the payload.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [HeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[0:4])
	frameType := Type(header[4])
	if length > MaxPayload {
		return Frame{}, &IPCError{Kind: ErrOversized, Err: fmt.Errorf("%s payload length %d exceeds maximum %d", frameType, length, MaxPayload)}
	}
	if !frameType.Valid() {
		return Frame{}, &IPCError{Kind: ErrMalformed, Err: fmt.Errorf("unknown frame type %s", frameType)}
	}

	frame := Frame{Type: frameType}
	if length > 0 {
		frame.Payload = make([]byte, length)
		if _, err := io.ReadFull(r, frame.Payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, fmt.Errorf("read %s payload: %w", frameType, err)
		}
	}
	return frame, nil
}
