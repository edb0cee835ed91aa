package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDataCorrupted is returned when a stored value cannot be decoded.
	ErrDataCorrupted = errors.New("data corrupted")

	// ErrSaveFailed is returned when a value could not be encoded or written.
	ErrSaveFailed = errors.New("save failed")

	// ErrLoadFailed is returned when the backing store could not be read.
	ErrLoadFailed = errors.New("load failed")

	// ErrMaxLettersExceeded is returned when saving a new letter would exceed
	// the scheduled letter cap.
	ErrMaxLettersExceeded = errors.New("maximum scheduled letters reached")

	// ErrScheduledTooSoon is returned when a delivery date is closer than the
	// minimum schedule delay.
	ErrScheduledTooSoon = errors.New("letters must be scheduled at least 1 minute in the future")

	// ErrSchedulingFailed is returned when a delivery trigger could not be registered.
	ErrSchedulingFailed = errors.New("failed to schedule letter notification")

	// ErrPermissionDenied is returned when notifications are not allowed.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrInvalidInput is the parent of every validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError describes a failed storage operation on a single key.
type StorageError struct {
	Op  string // "save", "load" or "delete"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Corrupted builds a StorageError for a value under key that failed to decode.
func Corrupted(key string, cause error) error {
	return &StorageError{Op: "load", Key: key, Err: fmt.Errorf("%w: %v", ErrDataCorrupted, cause)}
}
