package packaging

import "errors"

var (
	// ErrInvalidPath indicates an archive entry escaping its destination (e.g., path traversal)
	ErrInvalidPath = errors.New("invalid file path")

	// ErrIllegalFileName indicates a lock or staging name with disallowed characters
	ErrIllegalFileName = errors.New("illegal file name")

	// ErrLockTimeout indicates the lock could not be acquired within the wait period
	ErrLockTimeout = errors.New("timeout acquiring lock")
)
