package storage

import "os"

// Option configures a [Storage].
type Option func(*Storage)

// WithDirMode sets the permissions of created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(s *Storage) {
		if mode != 0 {
			s.dirMode = mode
		}
	}
}

// WithFileMode sets the permissions of created files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Storage) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}
