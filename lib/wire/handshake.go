// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"

	"github.com/bureau-foundation/logd/lib/codec"
)

// ProtocolVersion is the version a client announces in Hello. The
// daemon rejects any other value.
const ProtocolVersion = 1

// Hello is the first frame a client sends.
type Hello struct {
	PID     int32  `cbor:"pid"`
	Version uint16 `cbor:"version"`

	// Tag becomes the source tag of every record in the session.
	Tag string `cbor:"tag"`

	// FlushAck asks the daemon to echo an empty FLUSH frame once a
	// FLUSH has been written to disk, so the client can block on it.
	FlushAck bool `cbor:"flush_ack,omitempty"`
}

// Accept is the daemon's reply to an acceptable Hello.
type Accept struct {
	SessionID  string `cbor:"session_id"`
	BufferSize int    `cbor:"buffer_size"`
	MaxPayload int    `cbor:"max_payload"`
}

// RejectCode says why the daemon refused a connection.
type RejectCode string

const (
	RejectVersionMismatch      RejectCode = "version_mismatch"
	RejectSessionLimitExceeded RejectCode = "session_limit_exceeded"
	RejectBadHandshake         RejectCode = "bad_handshake"
	RejectShuttingDown         RejectCode = "shutting_down"
)

// Reject is the daemon's reply to a refused connection. The daemon
// closes the connection after sending it.
type Reject struct {
	Code   RejectCode `cbor:"code"`
	Reason string     `cbor:"reason,omitempty"`
}

// Error makes a received Reject usable as the client's dial error.
func (r *Reject) Error() string {
	if r.Reason == "" {
		return fmt.Sprintf("daemon rejected connection: %s", r.Code)
	}
	return fmt.Sprintf("daemon rejected connection: %s: %s", r.Code, r.Reason)
}

// NewHelloFrame encodes hello as a HELLO frame.
func NewHelloFrame(hello Hello) (Frame, error) {
	return encodeFrame(TypeHello, hello)
}

// NewAcceptFrame encodes accept as an ACCEPT frame.
func NewAcceptFrame(accept Accept) (Frame, error) {
	return encodeFrame(TypeAccept, accept)
}

// NewRejectFrame encodes reject as a REJECT frame.
func NewRejectFrame(reject Reject) (Frame, error) {
	return encodeFrame(TypeReject, reject)
}

// DecodeHello decodes a HELLO frame's payload.
func DecodeHello(frame Frame) (Hello, error) {
	var hello Hello
	err := decodeFrame(frame, TypeHello, &hello)
	return hello, err
}

// DecodeAccept decodes an ACCEPT frame's payload.
func DecodeAccept(frame Frame) (Accept, error) {
	var accept Accept
	err := decodeFrame(frame, TypeAccept, &accept)
	return accept, err
}

// DecodeReject decodes a REJECT frame's payload.
func DecodeReject(frame Frame) (*Reject, error) {
	var reject Reject
	if err := decodeFrame(frame, TypeReject, &reject); err != nil {
		return nil, err
	}
	return &reject, nil
}

func encodeFrame(frameType Type, payload any) (Frame, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s payload: %w", frameType, err)
	}
	return Frame{Type: frameType, Payload: data}, nil
}

func decodeFrame(frame Frame, want Type, target any) error {
	if frame.Type != want {
		return &IPCError{Kind: ErrUnexpectedFrame, Err: fmt.Errorf("expected %s, got %s", want, frame.Type)}
	}
	if err := codec.Unmarshal(frame.Payload, target); err != nil {
		return &IPCError{Kind: ErrMalformed, Err: fmt.Errorf("decoding %s payload: %w", want, err)}
	}
	return nil
}
