package domain

import "github.com/cockroachdb/errors"

var (
	// ErrDependencyMissing marks a missing or broken external tool.
	ErrDependencyMissing = errors.New("dependency missing")
	// ErrOperationFailure marks a failed external invocation during a job.
	ErrOperationFailure = errors.New("operation failed")
	// ErrSelection marks a format listing that could not be turned into a selection.
	ErrSelection = errors.New("stream selection failed")
)
