package sysfs

import "codeberg.org/mutker/powerhald/internal/errors"

const (
	ErrReadFailed  = errors.ErrorCode("sysfs_read_failed")
	ErrWriteFailed = errors.ErrorCode("sysfs_write_failed")
	ErrOpenFailed  = errors.ErrorCode("sysfs_open_failed")
)

// pathError carries the node a failed operation touched.
type pathError struct {
	Path  string
	Error string
}
