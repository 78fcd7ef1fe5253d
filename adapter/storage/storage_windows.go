//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func init() {
	ensureDir = ensureSnapshotDir
	syncFile = syncSnapshot
}

// ensureSnapshotDir leaves volume roots such as `C:\` alone.
func ensureSnapshotDir(files snapshotFS, dir string, perm os.FileMode) error {
	vol := filepath.VolumeName(dir)
	if vol != "" && filepath.Clean(dir) == vol+string(filepath.Separator) {
		return nil
	}
	return files.MkdirAll(dir, perm)
}

// syncSnapshot skips directories, windows cannot fsync them.
func syncSnapshot(f *os.File, isDir bool) error {
	if isDir {
		return nil
	}
	return f.Sync()
}
