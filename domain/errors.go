package domain

import (
	"errors"
	"fmt"
)

// ErrTargetNil is returned when the passed target, which should be a
// pointer, is passed as a nil value.
var ErrTargetNil = errors.New("target interface is nil")

// ErrNonPointer is returned when [Decoder.Decode] is given a target that is
// not a pointer.
var ErrNonPointer = errors.New("target must be a pointer")

// ErrConstraintViolated is returned by [Index] when an insert or update
// would violate a unique constraint.
var ErrConstraintViolated = errors.New("unique constraint violated")

// ErrCursorClosed is returned when trying to perform operations on a
// [Cursor] that has already been closed.
var ErrCursorClosed = errors.New("cursor is closed")

// ErrScanBeforeNext is returned when calling [Cursor.Scan] before a
// successful call to [Cursor.Next].
var ErrScanBeforeNext = errors.New("scan called before next")

// ErrNoFieldName is returned if no field name is provided when creating an
// index.
var ErrNoFieldName = errors.New("no field name provided")

// ErrNotFound is returned when a query expecting a single document finds
// no matches.
var ErrNotFound = errors.New("no document found")

// ErrCannotModifyID is returned by [Modifier.Modify] when the update query
// attempts to change a document's _id field.
var ErrCannotModifyID = errors.New("cannot modify the _id field")

// ErrBufferReset is returned when a pending operation is discarded because
// the underlying buffer was reset.
var ErrBufferReset = errors.New("executor buffer was reset")

// ErrFieldName is returned when a field name fails validation, such as
// starting with '$' or containing a '.'.
type ErrFieldName struct {
	Field  string
	Reason string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Field, e.Reason)
}

// ErrDatafileName is returned when a datastore's filename fails validation.
type ErrDatafileName struct {
	Name   string
	Reason string
}

func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("invalid datafile name %q: %s", e.Name, e.Reason)
}

// ErrDocumentType is returned when a value cannot be turned into a
// [Document].
type ErrDocumentType struct {
	Reason string
}

func (e ErrDocumentType) Error() string {
	return fmt.Sprintf("invalid doc instantiation: %s", e.Reason)
}

// ErrCannotCompare is returned when two values have no defined ordering
// under the comparer's total order.
type ErrCannotCompare struct {
	A any
	B any
}

func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare %v and %v", e.A, e.B)
}

// ErrCorruptFiles is returned when the fraction of corrupt lines found
// while loading a datafile exceeds the configured corruption threshold.
type ErrCorruptFiles struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

func (e ErrCorruptFiles) Error() string {
	return fmt.Sprintf(
		"corrupted %.2f%% (%d of %d) exceeded threshold %.2f%%",
		100*e.CorruptionRate, e.CorruptItems, e.DataLength, 100*e.CorruptAlertThreshold,
	)
}

// ErrDecode is returned when a value fails to decode into the requested
// target type.
type ErrDecode struct {
	Source any
	Target any
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %s into %T", e.Source, e.Target)
}

// ErrFlushToStorage is returned when a file or directory handle fails to
// sync or close during a crash-safe write.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	var err error
	if e.ErrorOnFsync != nil {
		err = e.ErrorOnFsync
	} else {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error:", err.Error())
}
