// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/logd/lib/clock"
	"github.com/bureau-foundation/logd/lib/record"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Path:        filepath.Join(t.TempDir(), "app.log"),
		MaxFileSize: 1000,
		MaxFiles:    3,
		Clock:       clock.Fake(epoch),
		Logger:      discardLogger(),
	}
}

func openManager(t *testing.T, options Options) *Manager {
	t.Helper()
	manager, err := Open(options)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

// batchOf returns a single-record batch whose formatted size is
// exactly size bytes. The fixed line overhead with a one-byte tag is
// 45 bytes.
func batchOf(size int, fill byte) record.Batch {
	return record.Batch{
		SessionID: "session",
		PID:       1234,
		Records: []record.Record{{
			Timestamp: epoch.UnixNano(),
			Level:     record.LevelInfo,
			ThreadID:  7,
			Tag:       "t",
			Message:   bytes.Repeat([]byte{fill}, size-45),
		}},
	}
}

func messageBatch(message string) record.Batch {
	return record.Batch{
		PID: 42,
		Records: []record.Record{{
			Timestamp: epoch.UnixNano(),
			Level:     record.LevelWarn,
			ThreadID:  1,
			Tag:       "app",
			Message:   []byte(message),
		}},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func listDir(t *testing.T, directory string) []string {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names
}

func TestBatchOfSize(t *testing.T) {
	t.Parallel()
	if got := len(record.FormatBatch(batchOf(500, 'x'))); got != 500 {
		t.Fatalf("formatted batch is %d bytes, want 500", got)
	}
}

func TestSizeRotationKeepsMaxFiles(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	manager := openManager(t, options)

	for i := range 10 {
		if err := manager.WriteBatch(batchOf(500, byte('a'+i))); err != nil {
			t.Fatalf("WriteBatch(%d): %v", i, err)
		}
	}

	want := []string{"app.log", "app.log.1", "app.log.2", "app.log.3"}
	if diff := cmp.Diff(want, listDir(t, filepath.Dir(options.Path))); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}

	// Each rotated file holds two consecutive batches; .1 is newest.
	for index, fills := range map[int]string{1: "ij", 2: "gh", 3: "ef"} {
		content := readFile(t, fmt.Sprintf("%s.%d", options.Path, index))
		if len(content) != 1000 {
			t.Errorf("app.log.%d is %d bytes, want 1000", index, len(content))
		}
		lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("app.log.%d has %d lines, want 2", index, len(lines))
		}
		for i, line := range lines {
			if !strings.HasSuffix(line, strings.Repeat(string(fills[i]), 455)) {
				t.Errorf("app.log.%d line %d does not carry batch %q", index, i, fills[i])
			}
		}
	}

	state := manager.State()
	if state.ActiveSize != 0 || state.RotatedFiles != 3 {
		t.Errorf("State = %+v, want empty active and 3 rotated files", state)
	}
	if stats := manager.Stats(); stats.Rotations != 5 || stats.BatchesWritten != 10 {
		t.Errorf("Stats = %+v, want 5 rotations and 10 batches", stats)
	}
}

func TestBatchIsNeverSplit(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	manager := openManager(t, options)

	// 600 + 600 overflows 1000, so the second batch starts a new file.
	for i := range 2 {
		if err := manager.WriteBatch(batchOf(600, byte('a'+i))); err != nil {
			t.Fatalf("WriteBatch(%d): %v", i, err)
		}
	}
	if got := len(readFile(t, options.Path+".1")); got != 600 {
		t.Errorf("app.log.1 is %d bytes, want 600", got)
	}
	if got := len(readFile(t, options.Path)); got != 600 {
		t.Errorf("app.log is %d bytes, want 600", got)
	}

	// A single batch larger than the limit still lands in one file.
	if err := manager.WriteBatch(batchOf(2500, 'z')); err != nil {
		t.Fatalf("WriteBatch(oversized): %v", err)
	}
	if got := len(readFile(t, options.Path+".1")); got != 2500 {
		t.Errorf("oversized batch split: app.log.1 is %d bytes, want 2500", got)
	}
	if got := manager.State().ActiveSize; got != 0 {
		t.Errorf("active size after oversized batch = %d, want 0", got)
	}
}

func TestRotationChainOrder(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	options.MaxFiles = 4
	manager := openManager(t, options)

	for i := range 20 {
		if err := manager.WriteBatch(messageBatch(fmt.Sprintf("batch %d", i))); err != nil {
			t.Fatalf("WriteBatch(%d): %v", i, err)
		}
		if err := manager.Rotate(); err != nil {
			t.Fatalf("Rotate(%d): %v", i, err)
		}
	}

	for index := 1; index <= 4; index++ {
		content := readFile(t, fmt.Sprintf("%s.%d", options.Path, index))
		want := fmt.Sprintf("batch %d\n", 20-index)
		if !strings.HasSuffix(content, want) {
			t.Errorf("app.log.%d = %q, want suffix %q", index, content, want)
		}
	}
	if _, err := os.Stat(options.Path + ".5"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("app.log.5 should not exist: %v", err)
	}
}

func TestMaybeRotateBelowThresholdIsNoOp(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	manager := openManager(t, options)

	if err := manager.WriteBatch(batchOf(100, 'x')); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	before := listDir(t, filepath.Dir(options.Path))
	for range 3 {
		rotated, err := manager.MaybeRotate()
		if err != nil || rotated {
			t.Fatalf("MaybeRotate = (%v, %v), want (false, nil)", rotated, err)
		}
	}
	if diff := cmp.Diff(before, listDir(t, filepath.Dir(options.Path))); diff != "" {
		t.Errorf("MaybeRotate changed the directory (-before +after):\n%s", diff)
	}
	if got := manager.State().ActiveSize; got != 100 {
		t.Errorf("ActiveSize = %d, want 100", got)
	}
}

func TestTimeRotation(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(epoch)
	options := testOptions(t)
	options.Mode = RotateTime
	options.Interval = time.Hour
	options.Clock = fake
	manager := openManager(t, options)

	// Empty files are never rotated on time.
	fake.Advance(2 * time.Hour)
	if rotated, _ := manager.MaybeRotate(); rotated {
		t.Fatal("empty active file rotated")
	}

	if err := manager.WriteBatch(batchOf(2000, 'x')); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	// Size alone does not rotate in time mode.
	if got := manager.State().RotatedFiles; got != 0 {
		t.Fatalf("RotatedFiles = %d after oversize write in time mode, want 0", got)
	}

	fake.Advance(2 * time.Hour)
	rotated, err := manager.MaybeRotate()
	if err != nil || !rotated {
		t.Fatalf("MaybeRotate after interval = (%v, %v), want (true, nil)", rotated, err)
	}
	state := manager.State()
	if state.RotatedFiles != 1 || !state.OpenedAt.Equal(epoch.Add(4*time.Hour)) {
		t.Errorf("State = %+v", state)
	}

	if err := manager.WriteBatch(batchOf(100, 'y')); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	fake.Advance(59 * time.Minute)
	if rotated, _ := manager.MaybeRotate(); rotated {
		t.Error("rotated before the interval elapsed")
	}
}

func TestHybridRotation(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(epoch)
	options := testOptions(t)
	options.Mode = RotateHybrid
	options.Interval = time.Hour
	options.Clock = fake
	manager := openManager(t, options)

	if err := manager.WriteBatch(batchOf(1000, 'a')); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if got := manager.State().RotatedFiles; got != 1 {
		t.Fatalf("size threshold: RotatedFiles = %d, want 1", got)
	}

	if err := manager.WriteBatch(batchOf(100, 'b')); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	fake.Advance(time.Hour)
	if rotated, err := manager.MaybeRotate(); err != nil || !rotated {
		t.Fatalf("time threshold: MaybeRotate = (%v, %v)", rotated, err)
	}
	if got := manager.State().RotatedFiles; got != 2 {
		t.Errorf("RotatedFiles = %d, want 2", got)
	}
}

func writeFiles(t *testing.T, directory string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(directory, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOpenRepairsChain(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	directory := filepath.Dir(options.Path)
	writeFiles(t, directory, map[string]string{
		"app.log":           "existing\n",
		"app.log.1":         "one",
		"app.log.3":         "three",
		"app.log.4.zst":     "four",
		"app.log.7":         "seven",
		"app.log.2.lz4.tmp": "partial",
		"app.log.x":         "not rotated",
		"app.log.05":        "not canonical",
		"other.txt":         "unrelated",
	})

	manager := openManager(t, options)

	want := []string{
		"app.log", "app.log.05", "app.log.1", "app.log.2", "app.log.3.zst",
		"app.log.x", "other.txt",
	}
	if diff := cmp.Diff(want, listDir(t, directory)); diff != "" {
		t.Errorf("directory after Open (-want +got):\n%s", diff)
	}
	for name, content := range map[string]string{
		"app.log.1":     "one",
		"app.log.2":     "three",
		"app.log.3.zst": "four",
	} {
		if got := readFile(t, filepath.Join(directory, name)); got != content {
			t.Errorf("%s = %q, want %q", name, got, content)
		}
	}

	state := manager.State()
	if state.RotatedFiles != 3 || state.ActiveSize != int64(len("existing\n")) {
		t.Errorf("State = %+v, want 3 rotated files and existing active size", state)
	}

	if err := manager.WriteBatch(messageBatch("appended")); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	content := readFile(t, options.Path)
	if !strings.HasPrefix(content, "existing\n") || !strings.HasSuffix(content, "appended\n") {
		t.Errorf("active file not appended: %q", content)
	}
}

func TestOpenPrefersCompressedDuplicate(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	directory := filepath.Dir(options.Path)
	writeFiles(t, directory, map[string]string{
		"app.log.1":     "plain",
		"app.log.1.zst": "compressed",
	})

	manager := openManager(t, options)
	if diff := cmp.Diff([]string{"app.log", "app.log.1.zst"}, listDir(t, directory)); diff != "" {
		t.Errorf("directory (-want +got):\n%s", diff)
	}
	if got := manager.State().RotatedFiles; got != 1 {
		t.Errorf("RotatedFiles = %d, want 1", got)
	}
}

func TestOpenRotatesOversizedActiveFile(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	writeFiles(t, filepath.Dir(options.Path), map[string]string{
		"app.log": strings.Repeat("x", 1200),
	})

	manager := openManager(t, options)
	if state := manager.State(); state.ActiveSize != 0 || state.RotatedFiles != 1 {
		t.Errorf("State = %+v, want rotated oversized file", state)
	}
}

func TestCompression(t *testing.T) {
	t.Parallel()
	for _, compression := range []Compression{CompressZstd, CompressLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			t.Parallel()
			options := testOptions(t)
			options.Compression = compression
			manager := openManager(t, options)

			var want [2]string
			for i := range 2 {
				batch := messageBatch(fmt.Sprintf("generation %d %s", i, strings.Repeat("log line ", 50)))
				want[i] = string(record.FormatBatch(batch))
				if err := manager.WriteBatch(batch); err != nil {
					t.Fatalf("WriteBatch: %v", err)
				}
				if err := manager.Rotate(); err != nil {
					t.Fatalf("Rotate: %v", err)
				}
			}
			if err := manager.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			extension := compression.Extension()
			wantNames := []string{"app.log", "app.log.1" + extension, "app.log.2" + extension}
			if diff := cmp.Diff(wantNames, listDir(t, filepath.Dir(options.Path))); diff != "" {
				t.Fatalf("directory (-want +got):\n%s", diff)
			}

			for index, content := range map[int]string{1: want[1], 2: want[0]} {
				reader, err := OpenRotated(fmt.Sprintf("%s.%d%s", options.Path, index, extension))
				if err != nil {
					t.Fatalf("OpenRotated: %v", err)
				}
				decoded, err := io.ReadAll(reader)
				reader.Close()
				if err != nil {
					t.Fatalf("decoding: %v", err)
				}
				if string(decoded) != content {
					t.Errorf("app.log.%d decoded to %q, want %q", index, decoded, content)
				}
			}
			if stats := manager.Stats(); stats.Compressed != 2 || stats.CompressionErrors != 0 {
				t.Errorf("Stats = %+v", stats)
			}
		})
	}
}

func TestOpenCompressesLeftovers(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	options.Compression = CompressZstd
	writeFiles(t, filepath.Dir(options.Path), map[string]string{
		"app.log.1": "left over from a run without compression\n",
	})

	manager := openManager(t, options)
	if err := manager.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if diff := cmp.Diff([]string{"app.log", "app.log.1.zst"}, listDir(t, filepath.Dir(options.Path))); diff != "" {
		t.Errorf("directory (-want +got):\n%s", diff)
	}
}

// faultyFS wraps the real filesystem with injectable failures.
type faultyFS struct {
	osFileSystem

	mutex sync.Mutex
	// renameErr, when set, is consulted before each rename.
	renameErr func(oldPath, newPath string) error
	// openErr, when set, is consulted before each open.
	openErr func(name string, flag int) error
	// writeFailures is the number of upcoming writes that fail after
	// writing half their data.
	writeFailures int
}

func (f *faultyFS) Rename(oldPath, newPath string) error {
	f.mutex.Lock()
	hook := f.renameErr
	f.mutex.Unlock()
	if hook != nil {
		if err := hook(oldPath, newPath); err != nil {
			return err
		}
	}
	return f.osFileSystem.Rename(oldPath, newPath)
}

func (f *faultyFS) OpenFile(name string, flag int, perm os.FileMode) (activeFile, error) {
	f.mutex.Lock()
	hook := f.openErr
	f.mutex.Unlock()
	if hook != nil {
		if err := hook(name, flag); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f}, nil
}

func (f *faultyFS) takeWriteFailure() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.writeFailures == 0 {
		return false
	}
	f.writeFailures--
	return true
}

type faultyFile struct {
	*os.File
	fs *faultyFS
}

var errDiskFull = errors.New("no space left on device")

func (f *faultyFile) Write(data []byte) (int, error) {
	if f.fs.takeWriteFailure() {
		written, _ := f.File.Write(data[:len(data)/2])
		return written, errDiskFull
	}
	return f.File.Write(data)
}

func openFaulty(t *testing.T, options Options, fs *faultyFS) *Manager {
	t.Helper()
	manager, err := open(options, fs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestWriteRetryTruncatesPartialWrites(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	options.Clock = clock.Real()
	options.WriteRetries = 3
	options.RetryBackoff = time.Millisecond
	fs := &faultyFS{}
	manager := openFaulty(t, options, fs)

	if err := manager.WriteBatch(messageBatch("before")); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	fs.mutex.Lock()
	fs.writeFailures = 2
	fs.mutex.Unlock()

	if err := manager.WriteBatch(messageBatch("after failures")); err != nil {
		t.Fatalf("WriteBatch with recoverable failures: %v", err)
	}

	want := string(record.FormatBatch(messageBatch("before"))) +
		string(record.FormatBatch(messageBatch("after failures")))
	if got := readFile(t, options.Path); got != want {
		t.Errorf("file content = %q, want %q", got, want)
	}
	if got := manager.State().ActiveSize; got != int64(len(want)) {
		t.Errorf("ActiveSize = %d, want %d", got, len(want))
	}
	if got := manager.Stats().WriteRetries; got != 2 {
		t.Errorf("WriteRetries = %d, want 2", got)
	}
}

func TestWriteDropsBatchAfterRetries(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	options.Clock = clock.Real()
	options.WriteRetries = 2
	options.RetryBackoff = time.Millisecond
	fs := &faultyFS{writeFailures: 10}
	manager := openFaulty(t, options, fs)

	batch := messageBatch("lost")
	batch.Records = append(batch.Records, batch.Records[0])
	err := manager.WriteBatch(batch)

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("WriteBatch error = %v, want *IOError", err)
	}
	if ioErr.Attempts != 3 || ioErr.Records != 2 || !errors.Is(err, errDiskFull) {
		t.Errorf("IOError = %+v", ioErr)
	}
	if got := readFile(t, options.Path); got != "" {
		t.Errorf("partial data left on disk: %q", got)
	}
	stats := manager.Stats()
	if stats.BatchesDropped != 1 || stats.RecordsDropped != 2 {
		t.Errorf("Stats = %+v, want 1 batch and 2 records dropped", stats)
	}

	// The manager keeps working once the disk recovers.
	fs.mutex.Lock()
	fs.writeFailures = 0
	fs.mutex.Unlock()
	if err := manager.WriteBatch(messageBatch("recovered")); err != nil {
		t.Fatalf("WriteBatch after recovery: %v", err)
	}
}

func TestRotationFailureRollsBack(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		inject func(fs *faultyFS, path string)
		step   string
	}{
		{
			name: "shift",
			inject: func(fs *faultyFS, path string) {
				fs.renameErr = func(oldPath, _ string) error {
					if oldPath == path+".1" {
						return errors.New("injected rename failure")
					}
					return nil
				}
			},
			step: "shift",
		},
		{
			name: "rename active",
			inject: func(fs *faultyFS, path string) {
				fs.renameErr = func(oldPath, _ string) error {
					if oldPath == path {
						return errors.New("injected rename failure")
					}
					return nil
				}
			},
			step: "rename active",
		},
		{
			name: "open active",
			inject: func(fs *faultyFS, path string) {
				fs.openErr = func(name string, flag int) error {
					if flag&os.O_TRUNC != 0 {
						return errors.New("injected open failure")
					}
					return nil
				}
			},
			step: "open active",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			options := testOptions(t)
			fs := &faultyFS{}
			manager := openFaulty(t, options, fs)

			for _, message := range []string{"oldest", "older"} {
				if err := manager.WriteBatch(messageBatch(message)); err != nil {
					t.Fatalf("WriteBatch: %v", err)
				}
				if err := manager.Rotate(); err != nil {
					t.Fatalf("Rotate: %v", err)
				}
			}
			if err := manager.WriteBatch(messageBatch("current")); err != nil {
				t.Fatalf("WriteBatch: %v", err)
			}

			directory := filepath.Dir(options.Path)
			before := listDir(t, directory)

			fs.mutex.Lock()
			test.inject(fs, options.Path)
			fs.mutex.Unlock()

			err := manager.Rotate()
			var rotationErr *RotationError
			if !errors.As(err, &rotationErr) {
				t.Fatalf("Rotate error = %v, want *RotationError", err)
			}
			if rotationErr.Step != test.step {
				t.Errorf("Step = %q, want %q", rotationErr.Step, test.step)
			}

			if diff := cmp.Diff(before, listDir(t, directory)); diff != "" {
				t.Errorf("failed rotation changed the directory (-before +after):\n%s", diff)
			}
			for path, message := range map[string]string{
				options.Path + ".1": "older",
				options.Path + ".2": "oldest",
			} {
				if got := readFile(t, path); !strings.HasSuffix(got, message+"\n") {
					t.Errorf("%s = %q, want %q", path, got, message)
				}
			}

			// The old handle still receives writes.
			if err := manager.WriteBatch(messageBatch("still writing")); err != nil {
				t.Fatalf("WriteBatch after failed rotation: %v", err)
			}
			content := readFile(t, options.Path)
			if !strings.Contains(content, "current\n") || !strings.HasSuffix(content, "still writing\n") {
				t.Errorf("active file = %q", content)
			}
			if got := manager.Stats().RotationErrors; got != 1 {
				t.Errorf("RotationErrors = %d, want 1", got)
			}
		})
	}
}

// rotatedCount counts the chain files present in directory.
func rotatedCount(t *testing.T, directory string) int {
	t.Helper()
	count := 0
	for _, name := range listDir(t, directory) {
		if strings.HasPrefix(name, "app.log.") {
			count++
		}
	}
	return count
}

func TestRotationFailureOnFullChainTracksRemovedFile(t *testing.T) {
	t.Parallel()
	options := testOptions(t)
	fs := &faultyFS{}
	manager := openFaulty(t, options, fs)

	for _, message := range []string{"first", "second", "third"} {
		if err := manager.WriteBatch(messageBatch(message)); err != nil {
			t.Fatalf("WriteBatch: %v", err)
		}
		if err := manager.Rotate(); err != nil {
			t.Fatalf("Rotate: %v", err)
		}
	}
	directory := filepath.Dir(options.Path)
	if got := manager.State().RotatedFiles; got != 3 || rotatedCount(t, directory) != 3 {
		t.Fatalf("full chain: RotatedFiles = %d, files = %v", got, listDir(t, directory))
	}

	fs.mutex.Lock()
	fs.renameErr = func(oldPath, _ string) error {
		if oldPath == options.Path+".1" {
			return errors.New("injected rename failure")
		}
		return nil
	}
	fs.mutex.Unlock()

	if err := manager.WriteBatch(messageBatch("fourth")); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	var rotationErr *RotationError
	if err := manager.Rotate(); !errors.As(err, &rotationErr) || rotationErr.Step != "shift" {
		t.Fatalf("Rotate error = %v, want shift *RotationError", err)
	}

	// The oldest file was removed before the failing step.
	want := []string{"app.log", "app.log.1", "app.log.2"}
	if diff := cmp.Diff(want, listDir(t, directory)); diff != "" {
		t.Errorf("directory after failed rotation (-want +got):\n%s", diff)
	}
	if got := manager.State().RotatedFiles; got != rotatedCount(t, directory) {
		t.Errorf("RotatedFiles = %d, but %d chain files exist", got, rotatedCount(t, directory))
	}

	fs.mutex.Lock()
	fs.renameErr = nil
	fs.mutex.Unlock()
	if err := manager.Rotate(); err != nil {
		t.Fatalf("Rotate after clearing the fault: %v", err)
	}
	want = []string{"app.log", "app.log.1", "app.log.2", "app.log.3"}
	if diff := cmp.Diff(want, listDir(t, directory)); diff != "" {
		t.Errorf("directory after recovery (-want +got):\n%s", diff)
	}
	if got := manager.State().RotatedFiles; got != 3 {
		t.Errorf("RotatedFiles after recovery = %d, want 3", got)
	}
	if got := readFile(t, options.Path+".1"); !strings.HasSuffix(got, "fourth\n") {
		t.Errorf("app.log.1 = %q, want the fourth batch", got)
	}
}

func TestWriteAfterClose(t *testing.T) {
	t.Parallel()
	manager := openManager(t, testOptions(t))
	if err := manager.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := manager.WriteBatch(messageBatch("late")); err == nil {
		t.Error("WriteBatch after Close succeeded")
	}
	if err := manager.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestParseRotatedName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		suffix    string
		index     int
		extension string
		ok        bool
	}{
		{"1", 1, "", true},
		{"12.zst", 12, ".zst", true},
		{"3.lz4", 3, ".lz4", true},
		{"2.zst.tmp", 2, ".zst.tmp", true},
		{"0", 0, "", false},
		{"05", 0, "", false},
		{"x", 0, "", false},
		{"1.gz", 0, "", false},
		{"-1", 0, "", false},
	}
	for _, test := range tests {
		index, extension, ok := parseRotatedName(test.suffix)
		if ok != test.ok || index != test.index || extension != test.extension {
			t.Errorf("parseRotatedName(%q) = (%d, %q, %v), want (%d, %q, %v)",
				test.suffix, index, extension, ok, test.index, test.extension, test.ok)
		}
	}
}
