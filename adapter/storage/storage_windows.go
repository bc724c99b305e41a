//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

// init overrides the two filesystem operations that behave differently on
// Windows: MkdirAll rejects a bare volume root, and directory handles can't
// be fsync'd at all.
func init() {
	osSpecificEnsureDir = func(fs fileSystem, dir string, mode os.FileMode) error {
		root := filepath.VolumeName(dir) + string(os.PathSeparator)
		if dir == root && filepath.Base(dir) == "" {
			return nil
		}
		return fs.MkdirAll(dir, mode)
	}

	osSpecificSync = func(f *os.File, isDir bool) error {
		if isDir {
			return nil
		}
		return f.Sync()
	}
}
