// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/logd/lib/record"
)

const (
	fileMode      = 0o644
	directoryMode = 0o755
	activeFlags   = os.O_WRONLY | os.O_CREATE | os.O_APPEND
)

// Manager appends formatted batches to the active file and maintains
// the rotated chain. All methods are safe for concurrent use.
type Manager struct {
	options Options
	fs      fileSystem
	logger  *slog.Logger

	mutex sync.Mutex
	// active is nil only after Close.
	active     activeFile
	activeSize int64
	openedAt   time.Time
	// rotated is the number of files in the chain; indices
	// 1..rotated exist on disk.
	rotated int
	closed  bool

	// compressions tracks background compression goroutines. Rotation
	// waits for them so renames never race a compressor.
	compressions sync.WaitGroup

	bytesWritten      atomic.Uint64
	batchesWritten    atomic.Uint64
	batchesDropped    atomic.Uint64
	recordsDropped    atomic.Uint64
	writeRetries      atomic.Uint64
	rotations         atomic.Uint64
	rotationErrors    atomic.Uint64
	compressed        atomic.Uint64
	compressionErrors atomic.Uint64
}

// Stats is a snapshot of Manager counters.
type Stats struct {
	BytesWritten      uint64
	BatchesWritten    uint64
	BatchesDropped    uint64
	RecordsDropped    uint64
	WriteRetries      uint64
	Rotations         uint64
	RotationErrors    uint64
	Compressed        uint64
	CompressionErrors uint64
}

// State describes the chain at one instant.
type State struct {
	ActivePath   string
	ActiveSize   int64
	OpenedAt     time.Time
	RotatedFiles int
}

// Open scans the directory containing options.Path, repairs the chain
// left by a previous run, and opens the active file for appending.
func Open(options Options) (*Manager, error) {
	return open(options, osFileSystem{})
}

func open(options Options, fs fileSystem) (*Manager, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}

	manager := &Manager{
		options: options,
		fs:      fs,
		logger:  options.Logger.With("path", options.Path),
	}

	if err := fs.MkdirAll(filepath.Dir(options.Path), directoryMode); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	rotated, pending, err := manager.scan()
	if err != nil {
		return nil, err
	}
	manager.rotated = rotated

	active, err := fs.OpenFile(options.Path, activeFlags, fileMode)
	if err != nil {
		return nil, fmt.Errorf("opening active log file: %w", err)
	}
	info, err := active.Stat()
	if err != nil {
		active.Close()
		return nil, fmt.Errorf("stat active log file: %w", err)
	}
	manager.active = active
	manager.activeSize = info.Size()
	manager.openedAt = options.Clock.Now()

	for _, path := range pending {
		manager.startCompression(path)
	}

	manager.logger.Info("log file opened",
		"active_size", manager.activeSize,
		"rotated_files", manager.rotated,
		"compression", options.Compression.String(),
	)

	// An active file left oversized by a previous run rotates now
	// rather than after the next write.
	if options.Mode.checksSize() && manager.activeSize >= options.MaxFileSize {
		manager.mutex.Lock()
		manager.rotateLocked()
		manager.mutex.Unlock()
	}

	return manager, nil
}

// WriteBatch formats batch and appends it to the active file, rotating
// before the write when the batch would overflow a non-empty file and
// evaluating MaybeRotate after it. A batch whose every write attempt
// fails is dropped and returned as *IOError.
func (m *Manager) WriteBatch(batch record.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}
	data := record.FormatBatch(batch)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return fmt.Errorf("log file %s: write after close", m.options.Path)
	}

	if m.options.Mode.checksSize() && m.activeSize > 0 &&
		m.activeSize+int64(len(data)) > m.options.MaxFileSize {
		// Failures are logged inside; the batch still goes to the
		// current file.
		m.rotateLocked()
	}

	// Time rotation measures the age of the file's first record, so
	// an idle empty file is never rotated.
	if m.activeSize == 0 {
		m.openedAt = m.options.Clock.Now()
	}

	attempts, err := m.writeLocked(data)
	if err != nil {
		m.batchesDropped.Add(1)
		m.recordsDropped.Add(uint64(len(batch.Records)))
		return &IOError{
			Path:     m.options.Path,
			Attempts: attempts,
			Records:  len(batch.Records),
			Err:      err,
		}
	}
	m.activeSize += int64(len(data))
	m.bytesWritten.Add(uint64(len(data)))
	m.batchesWritten.Add(1)

	// Rotation failures are logged and counted; the batch itself is
	// already on disk.
	m.maybeRotateLocked()
	return nil
}

// writeLocked writes data with retries. Bytes from a failed attempt
// are truncated away so the file never holds a partial batch. Returns
// the number of attempts made.
func (m *Manager) writeLocked(data []byte) (int, error) {
	backoff := m.options.RetryBackoff
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= m.options.WriteRetries; attempt++ {
		if attempt > 0 {
			m.writeRetries.Add(1)
			<-m.options.Clock.After(backoff)
			backoff = min(backoff*2, maxRetryBackoff)
		}
		attempts++

		written, err := m.active.Write(data)
		if err == nil {
			return attempts, nil
		}
		lastErr = err
		m.logger.Warn("log write failed",
			"attempt", attempts,
			"written", written,
			"bytes", len(data),
			"error", err,
		)
		if written > 0 {
			if truncateErr := m.active.Truncate(m.activeSize); truncateErr != nil {
				m.logger.Error("truncating partial write failed", "error", truncateErr)
			}
		}
	}
	return attempts, lastErr
}

// MaybeRotate rotates when a configured threshold has been reached and
// reports whether it did. With no threshold reached it does nothing.
func (m *Manager) MaybeRotate() (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return false, nil
	}
	return m.maybeRotateLocked()
}

func (m *Manager) maybeRotateLocked() (bool, error) {
	if !m.shouldRotateLocked() {
		return false, nil
	}
	if err := m.rotateLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) shouldRotateLocked() bool {
	if m.options.Mode.checksSize() && m.activeSize >= m.options.MaxFileSize {
		return true
	}
	if m.options.Mode.checksTime() && m.activeSize > 0 &&
		m.options.Clock.Now().Sub(m.openedAt) >= m.options.Interval {
		return true
	}
	return false
}

// Rotate rotates unconditionally, even when the active file is empty.
func (m *Manager) Rotate() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return fmt.Errorf("log file %s: rotate after close", m.options.Path)
	}
	return m.rotateLocked()
}

// rename is one completed step, kept so a later failure can undo it.
type rename struct{ from, to string }

// rotateLocked performs one rotation. On failure every completed
// rename is reversed and the old active handle stays in place.
func (m *Manager) rotateLocked() error {
	err := m.doRotateLocked()
	if err != nil {
		m.rotationErrors.Add(1)
		m.logger.Error("log rotation failed", "error", err)
		return err
	}
	m.rotations.Add(1)
	return nil
}

func (m *Manager) doRotateLocked() error {
	if err := m.active.Sync(); err != nil {
		return &RotationError{Step: "sync", Path: m.options.Path, Err: err}
	}

	m.compressions.Wait()

	rotated := m.rotated
	if rotated >= m.options.MaxFiles {
		oldest := m.rotatedPath(m.options.MaxFiles)
		if err := m.fs.Remove(oldest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &RotationError{Step: "remove", Path: oldest, Err: err}
		}
		// The oldest file is gone even if a later step fails.
		rotated = m.options.MaxFiles - 1
		m.rotated = rotated
	}

	var done []rename
	for index := rotated; index >= 1; index-- {
		from := m.rotatedPath(index)
		to := m.options.Path + "." + strconv.Itoa(index+1) + extensionOf(m.options.Path, from, index)
		if err := m.fs.Rename(from, to); err != nil {
			m.undo(done)
			return &RotationError{Step: "shift", Path: from, Err: err}
		}
		done = append(done, rename{from, to})
	}

	first := m.options.Path + ".1"
	if err := m.fs.Rename(m.options.Path, first); err != nil {
		m.undo(done)
		return &RotationError{Step: "rename active", Path: m.options.Path, Err: err}
	}
	done = append(done, rename{m.options.Path, first})

	next, err := m.fs.OpenFile(m.options.Path, activeFlags|os.O_TRUNC, fileMode)
	if err != nil {
		m.undo(done)
		return &RotationError{Step: "open active", Path: m.options.Path, Err: err}
	}

	previous := m.active
	m.active = next
	m.activeSize = 0
	m.openedAt = m.options.Clock.Now()
	m.rotated = rotated + 1
	if err := previous.Close(); err != nil {
		m.logger.Warn("closing rotated file", "error", err)
	}

	m.logger.Info("log rotated", "rotated_files", m.rotated)

	if m.options.Compression != CompressNone {
		m.startCompression(first)
	}
	return nil
}

// undo reverses completed renames, newest first.
func (m *Manager) undo(done []rename) {
	for i := len(done) - 1; i >= 0; i-- {
		if err := m.fs.Rename(done[i].to, done[i].from); err != nil {
			m.logger.Error("rolling back rotation rename",
				"from", done[i].to, "to", done[i].from, "error", err)
		}
	}
}

// rotatedPath returns the on-disk path of chain entry index,
// preferring a compressed form when one exists.
func (m *Manager) rotatedPath(index int) string {
	base := m.options.Path + "." + strconv.Itoa(index)
	for _, extension := range []string{".zst", ".lz4"} {
		if _, err := m.fs.Stat(base + extension); err == nil {
			return base + extension
		}
	}
	return base
}

// extensionOf returns the compression suffix of a rotated path.
func extensionOf(activePath, path string, index int) string {
	return path[len(activePath)+1+len(strconv.Itoa(index)):]
}

// Sync flushes the active file to stable storage.
func (m *Manager) Sync() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return nil
	}
	return m.active.Sync()
}

// State returns the current chain layout.
func (m *Manager) State() State {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return State{
		ActivePath:   m.options.Path,
		ActiveSize:   m.activeSize,
		OpenedAt:     m.openedAt,
		RotatedFiles: m.rotated,
	}
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	return Stats{
		BytesWritten:      m.bytesWritten.Load(),
		BatchesWritten:    m.batchesWritten.Load(),
		BatchesDropped:    m.batchesDropped.Load(),
		RecordsDropped:    m.recordsDropped.Load(),
		WriteRetries:      m.writeRetries.Load(),
		Rotations:         m.rotations.Load(),
		RotationErrors:    m.rotationErrors.Load(),
		Compressed:        m.compressed.Load(),
		CompressionErrors: m.compressionErrors.Load(),
	}
}

// Close waits for background compression, syncs, and closes the
// active file. Further writes fail.
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.compressions.Wait()

	syncErr := m.active.Sync()
	closeErr := m.active.Close()
	m.active = nil
	if syncErr != nil {
		return fmt.Errorf("syncing %s: %w", m.options.Path, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", m.options.Path, closeErr)
	}
	return nil
}
