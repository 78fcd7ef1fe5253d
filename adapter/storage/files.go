package storage

import (
	"errors"
	"io/fs"
	"os"
)

// snapshotFS holds the file system calls a [Storage] makes. Snapshots are
// only ever replaced whole, so nothing here reads or writes in place.
type snapshotFS interface {
	MkdirAll(dir string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Rename(from, to string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
}

// localFS is the [snapshotFS] of the running machine.
type localFS struct{}

func (localFS) MkdirAll(dir string, perm os.FileMode) error { return os.MkdirAll(dir, perm) }

func (localFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (localFS) Rename(from, to string) error { return os.Rename(from, to) }

func (localFS) Remove(name string) error { return os.Remove(name) }

func (localFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ensureDir and syncFile are replaced on windows.
var (
	ensureDir = func(files snapshotFS, dir string, perm os.FileMode) error {
		return files.MkdirAll(dir, perm)
	}
	syncFile = func(f *os.File, _ bool) error {
		return f.Sync()
	}
)
