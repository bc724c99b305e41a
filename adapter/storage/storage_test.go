package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testLine = "some data"

// fileSystemMock implements [fileSystem]. mockCount lets a test let the first
// N calls fall through to the real os package before switching over to
// mock.Mock expectations, so a failure can be injected deep into a
// multi-step operation like CrashSafeWriteFileLines.
type fileSystemMock struct {
	mock.Mock
	mockCount int
}

func (o *fileSystemMock) IsNotExist(err error) bool {
	if o.mockCount > 0 {
		o.mockCount--
		return os.IsNotExist(err)
	}
	return o.Called(err).Bool(0)
}

func (o *fileSystemMock) MkdirAll(path string, perm os.FileMode) error {
	if o.mockCount > 0 {
		o.mockCount--
		return os.MkdirAll(path, perm)
	}
	return o.Called(path, perm).Error(0)
}

func (o *fileSystemMock) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if o.mockCount > 0 {
		o.mockCount--
		return os.OpenFile(name, flag, perm)
	}
	call := o.Called(name, flag, perm)
	return call.Get(0).(*os.File), call.Error(1)
}

func (o *fileSystemMock) Remove(name string) error {
	if o.mockCount > 0 {
		o.mockCount--
		return os.Remove(name)
	}
	return o.Called(name).Error(0)
}

func (o *fileSystemMock) Rename(oldpath string, newpath string) error {
	if o.mockCount > 0 {
		o.mockCount--
		return os.Rename(oldpath, newpath)
	}
	return o.Called(oldpath, newpath).Error(0)
}

func (o *fileSystemMock) Stat(name string) (os.FileInfo, error) {
	if o.mockCount > 0 {
		o.mockCount--
		return os.Stat(name)
	}
	call := o.Called(name)
	if call.Get(0) == nil {
		return nil, call.Error(1)
	}
	return call.Get(0).(os.FileInfo), call.Error(1)
}

func (o *fileSystemMock) WriteFile(name string, data []byte, perm os.FileMode) error {
	if o.mockCount > 0 {
		o.mockCount--
		return os.WriteFile(name, data, perm)
	}
	return o.Called(name, data, perm).Error(0)
}

type StorageTestSuite struct {
	suite.Suite
	store *Storage
}

func (s *StorageTestSuite) SetupTest() {
	s.store = NewStorage().(*Storage)
}

// Appends to an already-existing, empty file.
func (s *StorageTestSuite) TestAppendExistentFile() {
	file := s.ExistentFile(s.T())

	i, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.NoError(err)
	s.Equal(len(testLine), i)
	s.FileExists(file)
	b, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal([]byte(testLine), b)
}

// Appends to the end of a file that already has content.
func (s *StorageTestSuite) TestAppendNonEmptyFile() {
	file := s.NonEmptyFile(s.T())

	i, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.NoError(err)
	s.Equal(len(testLine), i)
	b, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal("123\n"+testLine, string(b))
}

// Creates the file if it does not exist yet.
func (s *StorageTestSuite) TestAppendNonExistentFile() {
	file := s.NonexistentFile(s.T())

	i, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.NoError(err)
	s.Equal(len(testLine), i)
	s.FileExists(file)
}

// Fails to append to a read-only file.
func (s *StorageTestSuite) TestAppendReadOnlyFile() {
	file := s.ReadOnlyFile(s.T())

	i, err := s.store.AppendFile(file, 0666, []byte(testLine))
	s.Error(err)
	s.Zero(i)
}

// CrashSafeWriteFileLines writes through the temp+fsync+rename dance with no
// injected failure.
func (s *StorageTestSuite) TestCrashSafeWriteNoError() {
	lines := [][]byte{
		[]byte("abc123"),
		[]byte("abc234"),
		[]byte("abc345"),
	}
	expected := append(bytes.Join(lines, []byte("\n")), '\n')

	file := s.ExistentFile(s.T())

	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.NoError(err)
	s.FileExists(file)

	b, err := os.ReadFile(file)
	s.NoError(err)
	s.Equal(expected, b)
}

func (s *StorageTestSuite) TestCrashSafeWriteReadOnlyFile() {
	file := s.ReadOnlyFile(s.T())

	lines := [][]byte{[]byte("abc123")}
	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.Error(err)
}

// Fails when the target directory does not exist and cannot be created
// (parent path is itself a file, not a directory).
func (s *StorageTestSuite) TestCrashSafeWriteFileLinesInaccessibleFile() {
	dir := filepath.Join(s.T().TempDir(), "notadir.txt")
	file := filepath.Join(dir, "file.txt")

	filemode := os.FileMode(0666)
	s.NoError(os.WriteFile(dir, nil, filemode))

	lines := [][]byte{[]byte("abc123")}
	err := s.store.CrashSafeWriteFileLines(file, lines, filemode, filemode)
	s.Error(err)
}

// Fails when a leftover temp file from a prior crash cannot be opened.
func (s *StorageTestSuite) TestCrashSafeWriteFileLinesInaccessibleTempFile() {
	dir := s.T().TempDir()
	file := filepath.Join(dir, "noaccesstemp.txt")
	s.NoError(os.WriteFile(file+"~", nil, 0000))

	lines := [][]byte{[]byte("abc123")}
	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.Error(err)
}

// Fails if writing the temp file's lines fails.
func (s *StorageTestSuite) TestCrashSafeWriteFileLinesFailWriteTempFileLines() {
	lines := [][]byte{[]byte("abc123")}

	om := &fileSystemMock{mockCount: 3}
	s.store.ops = om

	file := filepath.Join(s.T().TempDir(), "file")
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	om.On("OpenFile", file+"~", flags, os.FileMode(0666)).
		Return((*os.File)(nil), fmt.Errorf("boom")).
		Once()
	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.Error(err)
	om.AssertExpectations(s.T())
}

// Fails if fsync'ing the newly-written temp file fails.
func (s *StorageTestSuite) TestCrashSafeWriteFileLinesFailFlushingTempFile() {
	lines := [][]byte{[]byte("abc123")}

	om := &fileSystemMock{mockCount: 4}
	s.store.ops = om

	file := filepath.Join(s.T().TempDir(), "file")
	om.On("OpenFile", file+"~", os.O_RDWR, os.FileMode(0666)).
		Return((*os.File)(nil), fmt.Errorf("boom")).
		Once()

	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.Error(err)
	om.AssertExpectations(s.T())
}

// Fails if renaming the temp file over the real file fails.
func (s *StorageTestSuite) TestCrashSafeWriteFileLinesFailRenaming() {
	lines := [][]byte{[]byte("abc123")}

	om := &fileSystemMock{mockCount: 5}
	s.store.ops = om

	file := filepath.Join(s.T().TempDir(), "file")
	om.On("Rename", file+"~", file).
		Return(fmt.Errorf("boom")).
		Once()

	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.Error(err)
	om.AssertExpectations(s.T())
}

// Fails if fsync'ing the directory that holds the renamed file fails.
func (s *StorageTestSuite) TestCrashSafeWriteFileLinesFailFlushingRenamed() {
	lines := [][]byte{[]byte("abc123")}

	om := &fileSystemMock{mockCount: 6}
	s.store.ops = om

	file := filepath.Join(s.T().TempDir(), "file")
	om.On("OpenFile", filepath.Dir(file), os.O_RDONLY, os.FileMode(0666)).
		Return((*os.File)(nil), fmt.Errorf("boom")).
		Once()

	err := s.store.CrashSafeWriteFileLines(file, lines, 0666, 0666)
	s.Error(err)
	om.AssertExpectations(s.T())
}

func (s *StorageTestSuite) TestCrashSafeWriteFileLinesForbiddenDir() {
	dir := s.T().TempDir()
	dir = filepath.Join(dir, "forbidden")
	s.NoError(os.Mkdir(dir, 0000))
	defer os.Remove(dir)

	file := filepath.Join(dir, "file.txt")

	err := s.store.CrashSafeWriteFileLines(file, nil, 0666, 0666)
	s.Error(err)
}

// No error when the main datafile already exists and there is no leftover
// temp file.
func (s *StorageTestSuite) TestEnsureDatafileIntegrityExistingFile() {
	file := s.ExistentFile(s.T())
	s.NoError(s.store.EnsureDatafileIntegrity(file, 0000))
}

// A brand-new database (neither file nor temp file exists) creates an empty
// datafile.
func (s *StorageTestSuite) TestEnsureDatafileIntegrityNonExistingFile() {
	file := s.NonexistentFile(s.T())

	s.NoFileExists(file)
	s.NoError(s.store.EnsureDatafileIntegrity(file, 0000))
	s.FileExists(file)
}

// A leftover temp file with no main datafile is the recovery case: a crash
// happened mid-compaction, and the temp file holds the last known-good
// state, so it is promoted.
func (s *StorageTestSuite) TestEnsureDatafileIntegrityNonExistingFileExistingTemp() {
	dir := s.T().TempDir()
	file := filepath.Join(dir, "primbutnomain.txt")
	s.NoError(os.WriteFile(file+"~", nil, 0666))

	s.NoFileExists(file)
	s.FileExists(file + "~")

	s.NoError(s.store.EnsureDatafileIntegrity(file, 0000))

	s.FileExists(file)
	s.NoFileExists(file + "~")
}

// A stale temp file left alongside a valid main datafile is discarded.
func (s *StorageTestSuite) TestEnsureDatafileIntegrityDiscardsStaleTemp() {
	file := s.ExistentFile(s.T())
	s.NoError(os.WriteFile(file+"~", []byte("stale"), 0666))

	s.NoError(s.store.EnsureDatafileIntegrity(file, 0000))

	s.FileExists(file)
	s.NoFileExists(file + "~")
}

func (s *StorageTestSuite) TestEnsureDatafileIntegrityFailCheckingPrimFile() {
	file := s.ExistentFile(s.T())

	om := new(fileSystemMock)
	s.store.ops = om

	om.On("Stat", mock.Anything).Return(nil, fmt.Errorf("boom")).Once()
	om.On("IsNotExist", mock.Anything).Return(false).Once()
	s.Error(s.store.EnsureDatafileIntegrity(file, 0000))
}

func (s *StorageTestSuite) TestEnsureDatafileIntegrityFailCheckingTempFile() {
	file := s.NonexistentFile(s.T())

	om := &fileSystemMock{mockCount: 2}
	s.store.ops = om

	om.On("Stat", mock.Anything).Return(nil, fmt.Errorf("boom")).Once()
	om.On("IsNotExist", mock.Anything).Return(false).Once()
	s.Error(s.store.EnsureDatafileIntegrity(file, 0000))
}

func (s *StorageTestSuite) TestEnsureParentDirectoryExistsExistingDir() {
	file := s.ExistentFile(s.T())
	s.NoError(s.store.EnsureParentDirectoryExists(file, 0000))
}

func (s *StorageTestSuite) TestflushToStorageFailFileSync() {
	file := s.ExistentFile(s.T())

	om := new(fileSystemMock)
	s.store.ops = om

	f, err := os.OpenFile(file, os.O_RDWR, 0666)
	if err != nil {
		s.FailNow("need an open file to continue the test")
	}
	s.NoError(f.Close())

	om.On("OpenFile", file, os.O_RDWR, os.FileMode(0666)).
		Return(f, nil)

	s.Error(s.store.flushToStorage(file, false, 0666))
}

func (s *StorageTestSuite) TestReadFileStream() {
	nonEmptyFile := s.NonEmptyFile(s.T())
	existentFile := s.ExistentFile(s.T())
	nonExistentFile := s.NonexistentFile(s.T())

	nonEmpty, err := s.store.ReadFileStream(nonEmptyFile, 0666)
	s.NoError(err)
	defer nonEmpty.Close()
	b, err := io.ReadAll(nonEmpty)
	s.NoError(err)
	s.Equal([]byte("123\n"), b)

	empty, err := s.store.ReadFileStream(existentFile, 0666)
	s.NoError(err)
	defer empty.Close()
	b, err = io.ReadAll(empty)
	s.NoError(err)
	s.Equal([]byte(""), b)

	nonexistent, err := s.store.ReadFileStream(nonExistentFile, 0666)
	s.Error(err)
	s.Nil(nonexistent)
}

func (s *StorageTestSuite) TestWriteFileLinesErrorWriting() {
	file := s.ExistentFile(s.T())

	om := new(fileSystemMock)
	s.store.ops = om

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC

	f, err := os.OpenFile(file, flag, 0666)
	if err != nil {
		s.FailNow("need an open file to continue the test")
	}
	s.NoError(f.Close())

	om.On("OpenFile", file, flag, os.FileMode(0666)).
		Return(f, nil).
		Once()

	lines := [][]byte{[]byte("hello world")}
	s.Error(s.store.writeFileLines(file, lines, 0666))
	om.AssertExpectations(s.T())
}

func (s *StorageTestSuite) TestExists() {
	existent := s.ExistentFile(s.T())
	nonexistent := s.NonexistentFile(s.T())

	exists, err := s.store.Exists(existent)
	s.NoError(err)
	s.True(exists)

	exists, err = s.store.Exists(nonexistent)
	s.NoError(err)
	s.False(exists)
}

func (s *StorageTestSuite) TestExistsPropagatesUnexpectedStatError() {
	om := new(fileSystemMock)
	s.store.ops = om

	om.On("Stat", "some/file").Return(nil, fmt.Errorf("boom")).Once()
	om.On("IsNotExist", mock.Anything).Return(false).Once()

	exists, err := s.store.Exists("some/file")
	s.Error(err)
	s.False(exists)
}

func (s *StorageTestSuite) TestRemove() {
	existent := s.ExistentFile(s.T())
	nonexistent := s.NonexistentFile(s.T())

	s.NoError(s.store.Remove(existent))
	s.Error(s.store.Remove(nonexistent))
}

func (s *StorageTestSuite) ExistentFile(t *testing.T) string {
	return s.CreateFile(t, nil, 0666)
}

func (s *StorageTestSuite) NonEmptyFile(t *testing.T) string {
	return s.CreateFile(t, []byte("123\n"), 0666)
}

func (s *StorageTestSuite) NonexistentFile(t *testing.T) string {
	dir := t.TempDir()
	return filepath.Join(dir, "nonexistent.txt")
}

func (s *StorageTestSuite) ReadOnlyFile(t *testing.T) string {
	return s.CreateFile(t, nil, 0444)
}

func (s *StorageTestSuite) CreateFile(t *testing.T, content []byte, mode os.FileMode) string {
	dir := t.TempDir()
	file := filepath.Join(dir, "existent.txt")
	if !s.NoError(os.WriteFile(file, content, mode)) {
		s.FailNow("could not create file")
	}
	return file
}

func TestStorageTestSuite(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}
