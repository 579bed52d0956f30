package glint

import "errors"

// Sentinel errors for graph misuse. These are carried inside panics
// (wrapped with %w) because they indicate programmer errors rather than
// recoverable evaluation failures.
var (
	// ErrCircularDependency means a computed value read itself, directly
	// or through other nodes, while it was being evaluated.
	ErrCircularDependency = errors.New("glint: circular dependency")

	// ErrSignalWriteNotAllowed means a watch body wrote a signal without
	// opting in via AllowSignalWrites.
	ErrSignalWriteNotAllowed = errors.New("glint: signal write from watch body not allowed")

	// ErrFlushReentrancy means Flush was called from inside a running
	// watch body.
	ErrFlushReentrancy = errors.New("glint: flush called from inside a watch body")
)
