package archive

import "errors"

var (
	// ErrIndexOutOfRange reports a user supplied 1-based index outside [1, total].
	ErrIndexOutOfRange = errors.New("archive: index out of range")
	// ErrBlobMissing reports a record whose blob no longer exists on disk.
	// Tolerated at read time; the record itself stays untouched.
	ErrBlobMissing = errors.New("archive: blob missing")
	// ErrStoreIO classifies blob or row operations that failed at the storage layer.
	ErrStoreIO = errors.New("archive: store io failure")
	// ErrInvalidBlobPath reports a blob path that resolves outside the store root.
	ErrInvalidBlobPath = errors.New("archive: blob path outside store root")
)
