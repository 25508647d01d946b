// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is logd's CBOR configuration. Handshake payloads
// (HELLO, ACCEPT, REJECT) are CBOR maps so either side can add fields
// without a protocol version bump; record frames stay fixed-layout
// binary because they are on the hot path.
//
// Consumers import this package rather than fxamacker/cbor directly so
// the encoding options are set in one place.
package codec
