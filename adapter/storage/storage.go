// Package storage contains the default [domain.Storage] implementation.
package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/webbestmaster/nedb/domain"
)

// osSpecificEnsureDir creates dir with the given mode. Overridden on windows
// to skip MkdirAll on a volume root, which os.MkdirAll rejects.
var osSpecificEnsureDir = func(fs fileSystem, dir string, mode os.FileMode) error {
	return fs.MkdirAll(dir, mode)
}

// osSpecificSync flushes f to disk. Overridden on windows, where directory
// handles cannot be fsync'd.
var osSpecificSync = func(f *os.File, isDir bool) error {
	return f.Sync()
}

// Storage implements [domain.Storage].
type Storage struct {
	ops fileSystem
}

// NewStorage returns a new implementation of domain.Storage.
func NewStorage() domain.Storage {
	return &Storage{ops: nativeFileSystem{}}
}

// AppendFile implements domain.Storage.
func (d *Storage) AppendFile(filename string, mode os.FileMode, data []byte) (int, error) {
	f, err := d.ops.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(data)
}

// CrashSafeWriteFileLines implements domain.Storage.
func (d *Storage) CrashSafeWriteFileLines(filename string, lines [][]byte, dirMode os.FileMode, fileMode os.FileMode) error {
	tempFilename := filename + "~"

	if err := d.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := d.Exists(filename)
	if err != nil {
		return err
	}

	if exists {
		if err := d.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := d.writeFileLines(tempFilename, lines, fileMode); err != nil {
		return err
	}

	if err := d.flushToStorage(tempFilename, false, fileMode); err != nil {
		return err
	}

	if err := d.rename(tempFilename, filename); err != nil {
		return err
	}

	return d.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// EnsureDatafileIntegrity implements domain.Storage. If the main datafile
// exists, any leftover temp file from an interrupted compaction is stale and
// removed. Otherwise, the temp file (if any) holds the last known-good state
// and is promoted; if neither exists, this is a brand-new database.
func (d *Storage) EnsureDatafileIntegrity(filename string, mode os.FileMode) error {
	tempFilename := filename + "~"

	filenameExists, err := d.Exists(filename)
	if err != nil {
		return err
	}
	tempFilenameExists, err := d.Exists(tempFilename)
	if err != nil {
		return err
	}

	if filenameExists {
		if tempFilenameExists {
			return d.Remove(tempFilename)
		}
		return nil
	}

	if !tempFilenameExists {
		return d.writeFileLines(filename, nil, mode)
	}
	return d.rename(tempFilename, filename)
}

// EnsureParentDirectoryExists implements domain.Storage.
func (d *Storage) EnsureParentDirectoryExists(filename string, mode os.FileMode) error {
	dir := filepath.Dir(filename)
	parsedDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return osSpecificEnsureDir(d.ops, parsedDir, mode)
}

// Exists implements domain.Storage.
func (d *Storage) Exists(filename string) (bool, error) {
	_, err := d.ops.Stat(filename)
	if err != nil {
		if d.ops.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	fileHandle, err := d.ops.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := osSpecificSync(fileHandle, isDir); err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}

	return nil
}

// ReadFileStream implements domain.Storage.
func (d *Storage) ReadFileStream(filename string, mode os.FileMode) (io.ReadCloser, error) {
	return d.ops.OpenFile(filename, os.O_RDONLY, mode)
}

func (d *Storage) rename(oldPath string, newPath string) error {
	return d.ops.Rename(oldPath, newPath)
}

func (d *Storage) writeFileLines(filename string, lines [][]byte, mode os.FileMode) error {
	stream, err := d.ops.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer stream.Close()
	for _, line := range lines {
		if _, err = stream.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Remove implements domain.Storage.
func (d *Storage) Remove(filename string) error {
	return d.ops.Remove(filename)
}
