// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logfile

import (
	"io"
	"os"
)

// fileSystem is the set of filesystem calls the manager makes for the
// active file and the rotation chain. Tests substitute implementations
// that fail on demand.
type fileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (activeFile, error)
	Rename(oldPath, newPath string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
}

// activeFile is the handle the manager appends to.
type activeFile interface {
	io.Writer
	Sync() error
	Close() error
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
}

type osFileSystem struct{}

func (osFileSystem) OpenFile(name string, flag int, perm os.FileMode) (activeFile, error) {
	file, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (osFileSystem) Rename(oldPath, newPath string) error         { return os.Rename(oldPath, newPath) }
func (osFileSystem) Remove(name string) error                      { return os.Remove(name) }
func (osFileSystem) Stat(name string) (os.FileInfo, error)         { return os.Stat(name) }
func (osFileSystem) ReadDir(name string) ([]os.DirEntry, error)    { return os.ReadDir(name) }
func (osFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
