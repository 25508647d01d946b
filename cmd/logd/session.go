// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/logd/lib/ringbuffer"
)

// Session is the daemon-side state for one connected client. The
// reader goroutine that created it is the only producer into ring; the
// drain loop is the only consumer.
type Session struct {
	ID  string
	PID int32
	Tag string

	// FlushAck echoes a FLUSH frame back once a requested flush is on
	// disk.
	FlushAck bool

	conn      net.Conn
	ring      *ringbuffer.RingBuffer
	createdAt time.Time

	// lastActivity is Unix nanoseconds of the most recent frame.
	lastActivity atomic.Int64

	received atomic.Uint64
	filtered atomic.Uint64
	dropped  atomic.Uint64
	written  atomic.Uint64

	// overflowWarning rate-limits the per-session overflow log line.
	overflowWarning rate.Sometimes

	closeOnce sync.Once
	closeErr  error
}

func newSession(id string, pid int32, tag string, flushAck bool, conn net.Conn, ring *ringbuffer.RingBuffer, now time.Time) *Session {
	session := &Session{
		ID:              id,
		PID:             pid,
		Tag:             tag,
		FlushAck:        flushAck,
		conn:            conn,
		ring:            ring,
		createdAt:       now,
		overflowWarning: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	session.touch(now)
	return session
}

func (s *Session) touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

// LastActivity returns when the session last received a frame.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Close closes the connection once. The reader goroutine observes the
// close as a read error and runs the normal disconnect path.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
