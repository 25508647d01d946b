// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/logd/lib/record"
	"github.com/bureau-foundation/logd/lib/ringbuffer"
	"github.com/bureau-foundation/logd/lib/wire"
)

// rejectWriteTimeout bounds the write of a REJECT frame to a client
// that is about to be disconnected anyway.
const rejectWriteTimeout = time.Second

// acceptLoop accepts connections until ctx is cancelled. Each
// connection gets its own goroutine tracked by d.connections.
func (d *Daemon) acceptLoop(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	d.logger.Info("accepting connections", "socket", listener.Addr().String())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			d.logger.Error("accept failed", "error", err)
			continue
		}

		d.connections.Add(1)
		go func() {
			defer d.connections.Done()
			d.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection runs one client from handshake to disconnect. Every
// exit path closes the connection; a session that reached the
// registry is drained and removed first.
func (d *Daemon) handleConnection(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	if ctx.Err() != nil {
		d.reject(conn, wire.RejectShuttingDown, "daemon is shutting down")
		return
	}
	if err := d.registry.Reserve(); err != nil {
		d.logger.Warn("rejecting connection", "error", err)
		d.reject(conn, wire.RejectSessionLimitExceeded, err.Error())
		return
	}

	session, err := d.handshake(conn)
	if err != nil {
		d.registry.Release()
		d.logger.Info("handshake failed", "error", err)
		return
	}
	d.registry.Add(session)
	d.metrics.sessionsOpened.Inc()

	logger := d.logger.With("session_id", session.ID)
	logger.Info("session opened",
		"pid", session.PID,
		"tag", session.Tag,
		"flush_ack", session.FlushAck,
	)

	reason := d.readLoop(session)
	d.endSession(session, reason)
}

// handshake reads HELLO and answers ACCEPT or REJECT.
func (d *Daemon) handshake(conn net.Conn) (*Session, error) {
	if err := conn.SetReadDeadline(time.Now().Add(d.config.HandshakeTimeout)); err != nil {
		return nil, err
	}

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("reading HELLO: %w", err)
	}
	hello, err := wire.DecodeHello(frame)
	if err != nil {
		d.reject(conn, wire.RejectBadHandshake, err.Error())
		return nil, err
	}
	if hello.Version != wire.ProtocolVersion {
		reason := fmt.Sprintf("client speaks version %d, daemon speaks %d", hello.Version, wire.ProtocolVersion)
		d.reject(conn, wire.RejectVersionMismatch, reason)
		return nil, &wire.IPCError{Kind: wire.ErrVersionMismatch, Err: errors.New(reason)}
	}

	pid, err := peerPID(conn)
	if err != nil {
		d.logger.Debug("peer credentials unavailable, using HELLO pid", "pid", hello.PID, "error", err)
		pid = hello.PID
	}

	ringOptions := d.config.RingOptions()
	ringOptions.Clock = d.clock
	session := newSession(uuid.NewString(), pid, hello.Tag, hello.FlushAck, conn,
		ringbuffer.New(ringOptions), d.clock.Now())

	accept, err := wire.NewAcceptFrame(wire.Accept{
		SessionID:  session.ID,
		BufferSize: d.config.BufferSize,
		MaxPayload: wire.MaxPayload,
	})
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(conn, accept); err != nil {
		return nil, fmt.Errorf("sending ACCEPT: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return session, nil
}

// reject sends a REJECT frame, best effort. The caller closes the
// connection.
func (d *Daemon) reject(conn net.Conn, code wire.RejectCode, reason string) {
	d.metrics.sessionsRejected.WithLabelValues(string(code)).Inc()
	frame, err := wire.NewRejectFrame(wire.Reject{Code: code, Reason: reason})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
	if err := wire.WriteFrame(conn, frame); err != nil {
		d.logger.Debug("sending REJECT failed", "code", code, "error", err)
	}
}

// readLoop consumes frames until the session ends and returns why it
// ended.
func (d *Daemon) readLoop(session *Session) string {
	highWater := max(1, session.ring.Cap()*3/4)
	for {
		frame, err := wire.ReadFrame(session.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return "disconnected"
			}
			d.countProtocolError(err)
			return fmt.Sprintf("read error: %v", err)
		}
		session.touch(d.clock.Now())

		switch frame.Type {
		case wire.TypeLogRecord:
			entry, err := wire.ParseLogRecord(frame.Payload)
			if err != nil {
				d.countProtocolError(err)
				return fmt.Sprintf("bad LOG_RECORD: %v", err)
			}
			d.ingest(session, entry)
			if session.ring.Len() >= highWater {
				d.drain.notify()
			}

		case wire.TypeFlush:
			d.metrics.flushes.Inc()
			if !d.drain.flush(session) {
				return "shutting down"
			}
			if session.FlushAck {
				if err := wire.WriteFrame(session.conn, wire.Frame{Type: wire.TypeFlush}); err != nil {
					return fmt.Sprintf("sending flush acknowledgement: %v", err)
				}
			}

		case wire.TypeHeartbeat:
			// Activity was recorded above.

		case wire.TypeBye:
			return "bye"

		default:
			d.metrics.protocolErrors.WithLabelValues("unexpected_frame").Inc()
			return fmt.Sprintf("unexpected %s frame", frame.Type)
		}
	}
}

// ingest filters and buffers one record.
func (d *Daemon) ingest(session *Session, entry record.Record) {
	if entry.Level < d.config.MinLogLevel {
		session.filtered.Add(1)
		d.metrics.recordsFiltered.Inc()
		return
	}
	entry.Tag = session.Tag
	session.received.Add(1)
	d.metrics.recordsReceived.Inc()

	err := session.ring.Push(entry)
	if err == nil {
		return
	}
	session.dropped.Add(1)
	d.metrics.recordsDropped.Inc()
	var overflow *ringbuffer.OverflowError
	if errors.As(err, &overflow) {
		session.overflowWarning.Do(func() {
			d.logger.Warn("session buffer overflow",
				"session_id", session.ID,
				"policy", overflow.Policy.String(),
				"dropped_total", session.dropped.Load(),
			)
		})
	}
}

func (d *Daemon) countProtocolError(err error) {
	kind := "transport"
	switch {
	case errors.Is(err, wire.ErrOversized):
		kind = "oversized"
	case errors.Is(err, wire.ErrMalformed):
		kind = "malformed"
	case errors.Is(err, io.ErrUnexpectedEOF):
		kind = "truncated"
	}
	d.metrics.protocolErrors.WithLabelValues(kind).Inc()
}

// endSession performs the final drain, removes the session, and
// releases its connection.
func (d *Daemon) endSession(session *Session, reason string) {
	drained := d.drain.flush(session)
	d.registry.Remove(session.ID)
	session.Close()

	lost := 0
	if !drained {
		lost = session.ring.Len()
		d.metrics.recordsLost.Add(float64(lost))
	}
	d.logger.Info("session closed",
		"session_id", session.ID,
		"reason", reason,
		"received", session.received.Load(),
		"filtered", session.filtered.Load(),
		"dropped", session.dropped.Load(),
		"written", session.written.Load(),
		"lost", lost,
		"duration", d.clock.Now().Sub(session.createdAt),
	)
}
