// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// startCompression compresses path in the background. Callers hold
// the manager mutex or have not yet published the manager; the
// goroutine itself touches only the filesystem and atomic counters.
func (m *Manager) startCompression(path string) {
	compression := m.options.Compression
	m.compressions.Add(1)
	go func() {
		defer m.compressions.Done()
		if err := compressFile(path, compression); err != nil {
			m.compressionErrors.Add(1)
			m.logger.Error("compressing rotated file failed", "file", path, "error", err)
			return
		}
		m.compressed.Add(1)
	}()
}

// compressFile writes path+extension through a temporary file, renames
// it into place, and removes the source. A crash at any point leaves
// either the source or a complete compressed file; Open removes the
// temporary and any source with a compressed twin.
func compressFile(path string, compression Compression) error {
	final := path + compression.Extension()
	temporary := final + ".tmp"

	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	output, err := os.OpenFile(temporary, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	succeeded := false
	defer func() {
		if !succeeded {
			output.Close()
			os.Remove(temporary)
		}
	}()

	encoder, err := newEncoder(output, compression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(encoder, source); err != nil {
		encoder.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finishing %s stream: %w", compression, err)
	}
	if err := output.Sync(); err != nil {
		return err
	}
	if err := output.Close(); err != nil {
		return err
	}
	if err := os.Rename(temporary, final); err != nil {
		return err
	}
	succeeded = true
	return os.Remove(path)
}

func newEncoder(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	case CompressLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("no encoder for compression %s", compression)
	}
}

// OpenRotated opens a file from the chain, decoding it according to
// its extension.
func OpenRotated(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		decoder, err := zstd.NewReader(file, zstd.WithDecoderConcurrency(1))
		if err != nil {
			file.Close()
			return nil, err
		}
		return &decodedFile{Reader: decoder, file: file, close: decoder.Close}, nil
	case strings.HasSuffix(path, ".lz4"):
		return &decodedFile{Reader: lz4.NewReader(file), file: file}, nil
	default:
		return file, nil
	}
}

type decodedFile struct {
	io.Reader
	file  *os.File
	close func()
}

func (d *decodedFile) Close() error {
	if d.close != nil {
		d.close()
	}
	return d.file.Close()
}
