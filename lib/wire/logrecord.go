// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/logd/lib/record"
)

// logRecordFixedLength is the LOG_RECORD payload size before the
// message bytes: 8 timestamp + 1 level + 4 thread + 4 message length.
const logRecordFixedLength = 17

// MaxMessage is the largest message a LOG_RECORD can carry.
const MaxMessage = MaxPayload - logRecordFixedLength

// AppendLogRecord appends the LOG_RECORD payload encoding of r to dst.
// The tag is not encoded; the daemon assigns it from the session.
func AppendLogRecord(dst []byte, r record.Record) []byte {
	dst = binary.BigEndian.AppendUint64(dst, uint64(r.Timestamp))
	dst = append(dst, byte(r.Level))
	dst = binary.BigEndian.AppendUint32(dst, r.ThreadID)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Message)))
	return append(dst, r.Message...)
}

// NewLogRecordFrame builds a LOG_RECORD frame for r.
func NewLogRecordFrame(r record.Record) (Frame, error) {
	if len(r.Message) > MaxMessage {
		return Frame{}, &IPCError{Kind: ErrOversized, Err: fmt.Errorf("message length %d exceeds maximum %d", len(r.Message), MaxMessage)}
	}
	return Frame{
		Type:    TypeLogRecord,
		Payload: AppendLogRecord(make([]byte, 0, logRecordFixedLength+len(r.Message)), r),
	}, nil
}

// ParseLogRecord decodes a LOG_RECORD payload. The returned record
// does not alias payload. The declared message length must account for
// exactly the remaining bytes.
func ParseLogRecord(payload []byte) (record.Record, error) {
	if len(payload) < logRecordFixedLength {
		return record.Record{}, &IPCError{Kind: ErrMalformed, Err: fmt.Errorf("LOG_RECORD payload is %d bytes, need at least %d", len(payload), logRecordFixedLength)}
	}
	messageLength := binary.BigEndian.Uint32(payload[13:17])
	if uint64(messageLength) != uint64(len(payload)-logRecordFixedLength) {
		return record.Record{}, &IPCError{Kind: ErrMalformed, Err: fmt.Errorf("LOG_RECORD declares %d message bytes, frame carries %d", messageLength, len(payload)-logRecordFixedLength)}
	}

	level := record.Level(payload[8])
	if !level.Valid() {
		return record.Record{}, &IPCError{Kind: ErrMalformed, Err: fmt.Errorf("LOG_RECORD has unknown level %d", payload[8])}
	}

	message := make([]byte, messageLength)
	copy(message, payload[logRecordFixedLength:])
	return record.Record{
		Timestamp: int64(binary.BigEndian.Uint64(payload[0:8])),
		Level:     level,
		ThreadID:  binary.BigEndian.Uint32(payload[9:13]),
		Message:   message,
	}, nil
}
