package storage

import "errors"

// Common storage errors
var (
	// ErrSnapshotNotFound indicates that no snapshot is stored under the key
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
