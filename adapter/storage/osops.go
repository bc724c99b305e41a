package storage

import "os"

// fileSystem is the thin seam over the os package that lets storage tests
// inject failures without touching a real disk.
type fileSystem interface {
	IsNotExist(err error) bool
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Rename(oldpath string, newpath string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// nativeFileSystem implements fileSystem against the real os package.
type nativeFileSystem struct{}

// IsNotExist implements [fileSystem].
func (nativeFileSystem) IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// MkdirAll implements [fileSystem].
func (nativeFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// OpenFile implements [fileSystem].
func (nativeFileSystem) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Remove implements [fileSystem].
func (nativeFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// Rename implements [fileSystem].
func (nativeFileSystem) Rename(oldpath string, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Stat implements [fileSystem].
func (nativeFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// WriteFile implements [fileSystem].
func (nativeFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
