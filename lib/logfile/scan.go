// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// chainEntry is one rotated file found on disk.
type chainEntry struct {
	index     int
	path      string
	extension string
}

// scan rebuilds the rotated chain from the directory listing. It
// removes abandoned compression temporaries, keeps only the
// compressed form when a file exists both ways, renumbers the chain to
// close gaps, and deletes the oldest files beyond MaxFiles. Returns
// the chain length and the uncompressed rotated files that still need
// compressing.
func (m *Manager) scan() (int, []string, error) {
	directory := filepath.Dir(m.options.Path)
	prefix := filepath.Base(m.options.Path) + "."

	entries, err := m.fs.ReadDir(directory)
	if err != nil {
		return 0, nil, fmt.Errorf("scanning log directory: %w", err)
	}

	byIndex := make(map[int]chainEntry)
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasPrefix(dirEntry.Name(), prefix) {
			continue
		}
		index, extension, ok := parseRotatedName(strings.TrimPrefix(dirEntry.Name(), prefix))
		if !ok {
			continue
		}
		path := filepath.Join(directory, dirEntry.Name())

		if strings.HasSuffix(extension, ".tmp") {
			m.logger.Info("removing abandoned compression file", "file", path)
			if err := m.fs.Remove(path); err != nil {
				m.logger.Warn("removing abandoned compression file failed", "file", path, "error", err)
			}
			continue
		}

		candidate := chainEntry{index: index, path: path, extension: extension}
		existing, duplicate := byIndex[index]
		if !duplicate {
			byIndex[index] = candidate
			continue
		}
		// A finished compressed file wins over its uncompressed
		// source; the compressor crashed between rename and remove.
		keep, discard := existing, candidate
		if existing.extension == "" && candidate.extension != "" {
			keep, discard = candidate, existing
		}
		byIndex[index] = keep
		m.logger.Info("removing duplicate rotated file", "file", discard.path, "kept", keep.path)
		if err := m.fs.Remove(discard.path); err != nil {
			return 0, nil, fmt.Errorf("removing duplicate rotated file: %w", err)
		}
	}

	indices := make([]int, 0, len(byIndex))
	for index := range byIndex {
		indices = append(indices, index)
	}
	slices.Sort(indices)

	chain := make([]chainEntry, 0, len(indices))
	for position, index := range indices {
		entry := byIndex[index]
		want := position + 1
		if index != want {
			target := m.options.Path + "." + strconv.Itoa(want) + entry.extension
			m.logger.Info("renumbering rotated file", "from", entry.path, "to", target)
			if err := m.fs.Rename(entry.path, target); err != nil {
				return 0, nil, fmt.Errorf("renumbering rotated file %s: %w", entry.path, err)
			}
			entry.index = want
			entry.path = target
		}
		chain = append(chain, entry)
	}

	for len(chain) > m.options.MaxFiles {
		oldest := chain[len(chain)-1]
		m.logger.Info("removing rotated file beyond max files", "file", oldest.path)
		if err := m.fs.Remove(oldest.path); err != nil {
			return 0, nil, fmt.Errorf("removing excess rotated file: %w", err)
		}
		chain = chain[:len(chain)-1]
	}

	var pending []string
	if m.options.Compression != CompressNone {
		for _, entry := range chain {
			if entry.extension == "" {
				pending = append(pending, entry.path)
			}
		}
	}
	return len(chain), pending, nil
}

// parseRotatedName splits the part of a rotated file name after the
// active name and its dot: "3", "3.zst", "3.lz4.tmp".
func parseRotatedName(suffix string) (int, string, bool) {
	digits, extension, _ := strings.Cut(suffix, ".")
	if extension != "" {
		extension = "." + extension
	}
	index, err := strconv.Atoi(digits)
	if err != nil || index < 1 || digits != strconv.Itoa(index) {
		return 0, "", false
	}
	switch extension {
	case "", ".zst", ".lz4", ".zst.tmp", ".lz4.tmp":
		return index, extension, true
	default:
		return 0, "", false
	}
}
