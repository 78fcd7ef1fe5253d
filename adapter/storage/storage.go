// Package storage writes snapshot files so that a crash never leaves a
// half-written file in place of a good one.
package storage

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dolmen-go/contextio"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Default permissions of created files and directories.
const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// TempSuffix is appended to a file name to get the name of the file written
// before being renamed over the final one.
const TempSuffix = "~"

// Storage reads and writes snapshot files.
type Storage struct {
	files    snapshotFS
	dirMode  os.FileMode
	fileMode os.FileMode
}

// NewStorage returns a [Storage] over the local file system.
func NewStorage(options ...Option) *Storage {
	s := &Storage{
		files:    localFS{},
		dirMode:  DefaultDirMode,
		fileMode: DefaultFileMode,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// WriteFile replaces filename with what write produces. The content goes to
// a temporary file first, which is flushed and then renamed over filename, so
// filename holds either the old or the new content. An error from write
// leaves filename untouched.
func (s *Storage) WriteFile(ctx context.Context, filename string, write func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filename == "" {
		return domain.ErrDatafileName{Reason: "empty file name"}
	}
	if strings.HasSuffix(filename, TempSuffix) {
		return domain.ErrDatafileName{Name: filename, Reason: "cannot end with '" + TempSuffix + "', reserved for temporary files"}
	}
	dir := filepath.Dir(filename)
	if err := ensureDir(s.files, dir, s.dirMode); err != nil {
		return err
	}

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := s.flush(filename, false); err != nil {
			return err
		}
	}

	temp := filename + TempSuffix
	if err := s.writeTemp(ctx, temp, write); err != nil {
		_ = s.files.Remove(temp)
		return err
	}
	if err := s.flush(temp, false); err != nil {
		return err
	}
	if err := s.files.Rename(temp, filename); err != nil {
		return err
	}
	return s.flush(dir, true)
}

func (s *Storage) writeTemp(ctx context.Context, temp string, write func(io.Writer) error) error {
	f, err := s.files.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.fileMode)
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(contextio.NewWriter(ctx, f))
	if err := write(buf); err != nil {
		f.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Open opens filename for reading. If only the temporary file exists, a crash
// happened before the first rename and the temporary file is renamed first.
// A missing file fails with an error matching [fs.ErrNotExist].
func (s *Storage) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ensureIntegrity(filename); err != nil {
		return nil, err
	}
	return s.files.OpenFile(filename, os.O_RDONLY, s.fileMode)
}

func (s *Storage) ensureIntegrity(filename string) error {
	exists, err := s.Exists(filename)
	if err != nil || exists {
		return err
	}
	temp := filename + TempSuffix
	tempExists, err := s.Exists(temp)
	if err != nil {
		return err
	}
	if !tempExists {
		return &fs.PathError{Op: "open", Path: filename, Err: fs.ErrNotExist}
	}
	return s.files.Rename(temp, filename)
}

// Exists tells whether filename exists.
func (s *Storage) Exists(filename string) (bool, error) {
	if _, err := s.files.Stat(filename); err != nil {
		if missing(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes filename and its temporary file. Missing files are
// ignored.
func (s *Storage) Remove(filename string) error {
	var errs []error
	for _, name := range []string{filename, filename + TempSuffix} {
		if err := s.files.Remove(name); err != nil && !missing(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Storage) flush(filename string, isDir bool) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}
	f, err := s.files.OpenFile(filename, flags, s.fileMode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := syncFile(f, isDir); err != nil {
		f.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return nil
}
