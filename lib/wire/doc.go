// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the logd client/daemon protocol carried over
// a unix domain socket.
//
// Every message is a frame:
//
//	[4 bytes payload length, big-endian uint32] [1 byte type] [payload]
//
// The length counts payload bytes only. Payloads above [MaxPayload] are
// rejected before any allocation.
//
// A connection starts with a handshake: the client sends [TypeHello]
// carrying a CBOR [Hello]; the daemon answers [TypeAccept] with a CBOR
// [Accept] or [TypeReject] with a CBOR [Reject] and closes. After
// acceptance the client streams [TypeLogRecord] frames, whose payload
// is the fixed binary layout written by [AppendLogRecord]:
//
//	timestamp int64 | level uint8 | thread_id uint32 | message_len uint32 | message
//
// [TypeFlush] asks the daemon to write everything buffered for the
// session now, [TypeHeartbeat] keeps an otherwise quiet session alive,
// and [TypeBye] ends the session cleanly.
//
// Protocol violations are reported as [*IPCError]; they end one session
// and never affect others.
package wire
