// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/logd/lib/record"
	"github.com/bureau-foundation/logd/lib/wire"
)

// handshakeTimeout bounds Dial when ctx carries no deadline.
const handshakeTimeout = 5 * time.Second

// Options configures a session.
type Options struct {
	// Tag labels every record in the session.
	Tag string

	// PID is announced in HELLO. Zero means os.Getpid().
	PID int32

	// FlushAck makes Flush wait for the daemon's confirmation.
	FlushAck bool
}

// Client is one session with the daemon. Methods are safe for
// concurrent use; frames from concurrent callers are serialized.
type Client struct {
	conn     net.Conn
	accept   wire.Accept
	flushAck bool

	mutex  sync.Mutex
	closed bool
}

// Dial connects to the daemon at socketPath and completes the
// handshake. A refusal is returned as *wire.Reject.
func Dial(ctx context.Context, socketPath string, options Options) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", socketPath, err)
	}

	client, err := handshake(ctx, conn, options)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

func handshake(ctx context.Context, conn net.Conn, options Options) (*Client, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(handshakeTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	pid := options.PID
	if pid == 0 {
		pid = int32(os.Getpid())
	}
	hello, err := wire.NewHelloFrame(wire.Hello{
		PID:      pid,
		Version:  wire.ProtocolVersion,
		Tag:      options.Tag,
		FlushAck: options.FlushAck,
	})
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(conn, hello); err != nil {
		return nil, fmt.Errorf("sending HELLO: %w", err)
	}

	reply, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("reading handshake reply: %w", err)
	}
	switch reply.Type {
	case wire.TypeAccept:
		accept, err := wire.DecodeAccept(reply)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(time.Time{}); err != nil {
			return nil, err
		}
		return &Client{conn: conn, accept: accept, flushAck: options.FlushAck}, nil
	case wire.TypeReject:
		reject, err := wire.DecodeReject(reply)
		if err != nil {
			return nil, err
		}
		return nil, reject
	default:
		return nil, &wire.IPCError{Kind: wire.ErrUnexpectedFrame, Err: fmt.Errorf("handshake reply was %s", reply.Type)}
	}
}

// SessionID returns the identifier the daemon assigned.
func (c *Client) SessionID() string { return c.accept.SessionID }

// BufferSize returns the daemon's per-session buffer capacity.
func (c *Client) BufferSize() int { return c.accept.BufferSize }

// Log sends message at level, timestamped now and attributed to the
// calling OS thread.
func (c *Client) Log(level record.Level, message string) error {
	return c.Send(record.Record{
		Timestamp: time.Now().UnixNano(),
		Level:     level,
		ThreadID:  currentThreadID(),
		Message:   []byte(message),
	})
}

// Send sends r as one LOG_RECORD frame. The session tag replaces r.Tag
// on the daemon side.
func (c *Client) Send(r record.Record) error {
	frame, err := wire.NewLogRecordFrame(r)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Heartbeat keeps an otherwise idle session from being reaped.
func (c *Client) Heartbeat() error {
	return c.write(wire.Frame{Type: wire.TypeHeartbeat})
}

// Flush asks the daemon to write the session's buffered records. With
// FlushAck it waits until the daemon reports the write done or ctx
// ends.
func (c *Client) Flush(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.writeLocked(wire.Frame{Type: wire.TypeFlush}); err != nil {
		return err
	}
	if !c.flushAck {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer func() {
		stop()
		c.conn.SetReadDeadline(time.Time{})
	}()

	for {
		frame, err := wire.ReadFrame(c.conn)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("waiting for flush acknowledgement: %w", err)
		}
		switch frame.Type {
		case wire.TypeFlush:
			return nil
		case wire.TypeReject:
			reject, err := wire.DecodeReject(frame)
			if err != nil {
				return err
			}
			return reject
		}
	}
}

// Close sends BYE and closes the connection. The daemon drains the
// session's remaining records on its side.
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil
	}
	byeErr := c.writeLocked(wire.Frame{Type: wire.TypeBye})
	c.closed = true
	closeErr := c.conn.Close()
	if byeErr != nil && !errors.Is(byeErr, net.ErrClosed) {
		return byeErr
	}
	return closeErr
}

func (c *Client) write(frame wire.Frame) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.writeLocked(frame)
}

func (c *Client) writeLocked(frame wire.Frame) error {
	if c.closed {
		return net.ErrClosed
	}
	if err := wire.WriteFrame(c.conn, frame); err != nil {
		return fmt.Errorf("sending %s: %w", frame.Type, err)
	}
	return nil
}
