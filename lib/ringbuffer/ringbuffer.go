// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ringbuffer

import (
	"fmt"
	"sync"
	"time"

	"github.com/bureau-foundation/logd/lib/clock"
	"github.com/bureau-foundation/logd/lib/record"
)

// Policy selects what a full buffer does with an incoming record.
type Policy uint8

const (
	// DropOldest evicts the oldest record to admit the new one. This
	// is the default: producers never wait.
	DropOldest Policy = iota
	// DropNewest rejects the incoming record.
	DropNewest
	// BlockWithTimeout waits for room up to a bounded duration.
	BlockWithTimeout
)

// String returns the configuration name of the policy.
func (policy Policy) String() string {
	switch policy {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case BlockWithTimeout:
		return "block-with-timeout"
	default:
		return fmt.Sprintf("policy(%d)", uint8(policy))
	}
}

// ParsePolicy parses a policy from its configuration name.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "drop-oldest", "":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	case "block-with-timeout", "block":
		return BlockWithTimeout, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q (want drop-oldest, drop-newest, or block-with-timeout)", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (policy Policy) MarshalText() ([]byte, error) {
	return []byte(policy.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (policy *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*policy = parsed
	return nil
}

// OverflowError reports a record lost to a full buffer.
type OverflowError struct {
	Policy Policy

	// Dropped is the record that was lost: the evicted oldest record
	// under DropOldest, otherwise the incoming record.
	Dropped record.Record

	// Admitted is true when the incoming record was stored despite
	// the overflow (DropOldest only).
	Admitted bool
}

func (e *OverflowError) Error() string {
	if e.Admitted {
		return fmt.Sprintf("ring buffer full (%s): evicted oldest record", e.Policy)
	}
	return fmt.Sprintf("ring buffer full (%s): rejected incoming record", e.Policy)
}

// Options configures a RingBuffer.
type Options struct {
	// Capacity is the number of record slots. Must be positive.
	Capacity int

	Policy Policy

	// BlockTimeout bounds how long Push waits under
	// BlockWithTimeout. Ignored by the other policies.
	BlockTimeout time.Duration

	// Clock drives BlockWithTimeout waits. Defaults to clock.Real().
	Clock clock.Clock
}

// RingBuffer is a fixed-capacity FIFO of records. Push and Drain may
// be called from different goroutines.
type RingBuffer struct {
	mutex    sync.Mutex
	slots    []record.Record
	capacity int
	// head is the slot holding the oldest record; count is the number
	// of live records starting at head (wrapping modulo capacity).
	head  int
	count int

	pushed  uint64
	dropped uint64

	policy       Policy
	blockTimeout time.Duration
	clock        clock.Clock

	// space is signaled (non-blocking, capacity 1) whenever Drain
	// frees slots, waking a Push blocked under BlockWithTimeout.
	space chan struct{}
}

// New creates a RingBuffer. Panics if the capacity is not positive,
// which is a configuration bug caught by config validation.
func New(options Options) *RingBuffer {
	if options.Capacity <= 0 {
		panic(fmt.Sprintf("ringbuffer: capacity must be positive, got %d", options.Capacity))
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return &RingBuffer{
		slots:        make([]record.Record, options.Capacity),
		capacity:     options.Capacity,
		policy:       options.Policy,
		blockTimeout: options.BlockTimeout,
		clock:        options.Clock,
		space:        make(chan struct{}, 1),
	}
}

// Push appends a record. It returns nil when the record was stored
// without loss and an *OverflowError otherwise. Push never blocks
// longer than the configured BlockTimeout.
func (ring *RingBuffer) Push(entry record.Record) error {
	ring.mutex.Lock()
	if ring.count < ring.capacity {
		ring.storeLocked(entry)
		ring.mutex.Unlock()
		return nil
	}

	switch ring.policy {
	case DropOldest:
		evicted := ring.slots[ring.head]
		ring.slots[ring.head] = record.Record{}
		ring.head = (ring.head + 1) % ring.capacity
		ring.count--
		ring.storeLocked(entry)
		ring.dropped++
		ring.mutex.Unlock()
		return &OverflowError{Policy: DropOldest, Dropped: evicted, Admitted: true}

	case BlockWithTimeout:
		ring.mutex.Unlock()
		return ring.pushBlocking(entry)

	default:
		ring.dropped++
		ring.mutex.Unlock()
		return &OverflowError{Policy: ring.policy, Dropped: entry}
	}
}

// pushBlocking waits for Drain to free a slot or for the timeout to
// expire. Called without the mutex held.
func (ring *RingBuffer) pushBlocking(entry record.Record) error {
	deadline := ring.clock.After(ring.blockTimeout)
	for {
		select {
		case <-ring.space:
		case <-deadline:
			ring.mutex.Lock()
			defer ring.mutex.Unlock()
			// A drain may have raced the deadline.
			if ring.count < ring.capacity {
				ring.storeLocked(entry)
				return nil
			}
			ring.dropped++
			return &OverflowError{Policy: BlockWithTimeout, Dropped: entry}
		}

		ring.mutex.Lock()
		if ring.count < ring.capacity {
			ring.storeLocked(entry)
			ring.mutex.Unlock()
			return nil
		}
		ring.mutex.Unlock()
	}
}

func (ring *RingBuffer) storeLocked(entry record.Record) {
	ring.slots[(ring.head+ring.count)%ring.capacity] = entry
	ring.count++
	ring.pushed++
}

// Drain removes and returns up to max records in push order. Returns
// nil when the buffer is empty or max is not positive.
func (ring *RingBuffer) Drain(max int) []record.Record {
	ring.mutex.Lock()
	defer ring.mutex.Unlock()

	n := ring.count
	if max < n {
		n = max
	}
	if n <= 0 {
		return nil
	}

	out := make([]record.Record, n)
	for i := 0; i < n; i++ {
		out[i] = ring.slots[ring.head]
		ring.slots[ring.head] = record.Record{}
		ring.head = (ring.head + 1) % ring.capacity
	}
	ring.count -= n

	select {
	case ring.space <- struct{}{}:
	default:
	}
	return out
}

// Len returns the number of buffered records.
func (ring *RingBuffer) Len() int {
	ring.mutex.Lock()
	defer ring.mutex.Unlock()
	return ring.count
}

// Cap returns the buffer capacity.
func (ring *RingBuffer) Cap() int {
	return ring.capacity
}

// Policy returns the overflow policy.
func (ring *RingBuffer) Policy() Policy {
	return ring.policy
}

// Pushed returns the number of records ever stored.
func (ring *RingBuffer) Pushed() uint64 {
	ring.mutex.Lock()
	defer ring.mutex.Unlock()
	return ring.pushed
}

// Dropped returns the number of records lost to overflow.
func (ring *RingBuffer) Dropped() uint64 {
	ring.mutex.Lock()
	defer ring.mutex.Unlock()
	return ring.dropped
}
