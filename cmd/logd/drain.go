// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"time"

	"github.com/bureau-foundation/logd/lib/clock"
	"github.com/bureau-foundation/logd/lib/record"
)

// batchWriter is the part of *logfile.Manager the drain loop uses.
type batchWriter interface {
	WriteBatch(batch record.Batch) error
	MaybeRotate() (bool, error)
	Sync() error
}

// drainRequest asks the drain loop to empty one session's buffer.
// done is closed once the records are written.
type drainRequest struct {
	session *Session
	done    chan struct{}
}

// drainLoop is the single consumer of every session's ring buffer and
// the only caller of the file manager's write path.
type drainLoop struct {
	registry *Registry
	files    batchWriter
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics

	batchSize     int
	flushInterval time.Duration
	autoFlush     bool

	// rotationCheck is the period of time-based rotation checks, or
	// zero when rotation is purely size-based.
	rotationCheck time.Duration

	requests chan drainRequest
	wake     chan struct{}
	// stopped is closed when run returns.
	stopped chan struct{}
}

func newDrainLoop(registry *Registry, files batchWriter, clk clock.Clock, logger *slog.Logger, metrics *metrics) *drainLoop {
	return &drainLoop{
		registry: registry,
		files:    files,
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
		requests: make(chan drainRequest),
		wake:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}
}

// flush drains session completely and waits for the write. Returns
// false if the loop has stopped and the records were not written.
func (d *drainLoop) flush(session *Session) bool {
	request := drainRequest{session: session, done: make(chan struct{})}
	select {
	case d.requests <- request:
	case <-d.stopped:
		return false
	}
	select {
	case <-request.done:
		return true
	case <-d.stopped:
		return false
	}
}

// notify schedules a pass over every session without waiting. Used
// when a buffer crosses its high-water mark.
func (d *drainLoop) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// run drains on the flush tick, on requests, and on notify until a
// shutdown deadline arrives on stop, then makes a final pass that ends
// at that deadline.
func (d *drainLoop) run(stop <-chan time.Time) {
	defer close(d.stopped)

	var tick <-chan time.Time
	if d.autoFlush {
		ticker := d.clock.NewTicker(d.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	var rotationTick <-chan time.Time
	if d.rotationCheck > 0 {
		ticker := d.clock.NewTicker(d.rotationCheck)
		defer ticker.Stop()
		rotationTick = ticker.C
	}

	for {
		select {
		case deadline := <-stop:
			d.finalPass(deadline)
			return
		case <-tick:
			d.drainAll()
		case <-d.wake:
			d.drainAll()
		case <-rotationTick:
			// Failures are logged by the file manager.
			d.files.MaybeRotate()
		case request := <-d.requests:
			d.drainSession(request.session, true)
			// A flushed session's records are on stable storage before
			// its reader is released to acknowledge.
			if err := d.files.Sync(); err != nil {
				d.logger.Error("syncing log file after flush", "session_id", request.session.ID, "error", err)
			}
			close(request.done)
		}
	}
}

// drainAll visits sessions round-robin, one batch each per pass, until
// every buffer that was non-empty at the start has been emptied.
func (d *drainLoop) drainAll() {
	sessions := d.registry.Snapshot()
	if len(sessions) == 0 {
		return
	}
	passes := 1
	for _, session := range sessions {
		passes = max(passes, session.ring.Cap()/d.batchSize+1)
	}
	for range passes {
		more := false
		for _, session := range sessions {
			if d.drainSession(session, false) == d.batchSize {
				more = true
			}
		}
		if !more {
			return
		}
	}
}

// drainSession writes up to one batch, or everything buffered when
// untilEmpty is set. Returns the size of the last batch taken.
func (d *drainLoop) drainSession(session *Session, untilEmpty bool) int {
	for {
		records := session.ring.Drain(d.batchSize)
		if len(records) == 0 {
			return 0
		}
		d.write(session, records)
		if !untilEmpty || len(records) < d.batchSize {
			return len(records)
		}
	}
}

func (d *drainLoop) write(session *Session, records []record.Record) {
	err := d.files.WriteBatch(record.Batch{
		SessionID: session.ID,
		PID:       session.PID,
		Records:   records,
	})
	if err != nil {
		// The file manager has already retried; the batch is gone.
		d.metrics.writeErrors.Inc()
		d.metrics.recordsLost.Add(float64(len(records)))
		d.logger.Error("batch dropped",
			"session_id", session.ID,
			"records", len(records),
			"error", err,
		)
		return
	}
	session.written.Add(uint64(len(records)))
	d.metrics.recordsWritten.Add(float64(len(records)))
}

// finalPass drains every remaining session until deadline. Sessions
// not reached in time are abandoned and counted.
func (d *drainLoop) finalPass(deadline time.Time) {
	abandonedSessions, abandonedRecords := 0, 0
	for _, session := range d.registry.Snapshot() {
		if !d.clock.Now().Before(deadline) {
			abandonedSessions++
			abandonedRecords += session.ring.Len()
			continue
		}
		d.drainSession(session, true)
	}
	if abandonedRecords > 0 {
		d.metrics.recordsLost.Add(float64(abandonedRecords))
		d.logger.Warn("shutdown grace period expired with records still buffered",
			"sessions", abandonedSessions,
			"records", abandonedRecords,
			"deadline", deadline,
		)
	}
}
