// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logclient is the producer side of the logd protocol.
//
// [Dial] connects to the daemon's unix socket and performs the
// HELLO/ACCEPT handshake; a refused handshake returns the daemon's
// [*wire.Reject] as the error. The returned [Client] sends records as
// LOG_RECORD frames, one write per record, so a producer that crashes
// loses only what it had not yet written.
//
// [Client.Flush] asks the daemon to drain the session to disk. When
// the client was dialed with FlushAck it blocks until the daemon
// confirms the write.
package logclient
