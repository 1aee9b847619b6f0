package genfile

import (
	"errors"
	"fmt"
	"strings"
)

// Routing and configuration errors
var (
	// ErrNotFound is returned when no provider owns the requested path
	ErrNotFound = errors.New("no provider owns path")
	// ErrUnsupportedOperation is returned for operations the router refuses,
	// such as copying or moving between two providers
	ErrUnsupportedOperation = errors.New("operation not supported")
	// ErrInvalidProviderConfiguration is returned when a router is built
	// without providers
	ErrInvalidProviderConfiguration = errors.New("invalid provider configuration")
	// ErrInvalidPath is returned when a path cannot be parsed
	ErrInvalidPath = errors.New("invalid path")
)

// Common provider errors
var (
	ErrNotExist    = errors.New("file does not exist")
	ErrExist       = errors.New("file already exists")
	ErrPermission  = errors.New("permission denied")
	ErrNotDir      = errors.New("not a directory")
	ErrIsDir       = errors.New("is a directory")
	ErrInvalidName = errors.New("invalid name")
)

// OperationError records a failed provider or decorator call together with
// the operation, path and provider involved.
type OperationError struct {
	Op       string
	Path     Path
	Provider string
	Err      error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Path, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// BatchError collects every per-path failure of a batch operation.
type BatchError struct {
	Op       string
	Total    int
	Failures []*OperationError
}

// Error implements the error interface
func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d paths failed", e.Op, len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s: %v", f.Path, f.Err)
	}
	return b.String()
}

// Unwrap exposes each failure to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// FailedPaths returns the failed paths in input order.
func (e *BatchError) FailedPaths() []Path {
	paths := make([]Path, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}
	return paths
}

// IsNotFound reports whether err indicates that no provider owns a path
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsUnsupported reports whether err indicates a refused operation
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsReadOnly reports whether err comes from a read-only provider
func IsReadOnly(err error) bool {
	return errors.Is(err, ErrReadOnly)
}
