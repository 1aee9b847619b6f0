package genfile

import (
	"context"

	"go.uber.org/zap"
)

// ============================================================================
// Batch Operations
// ============================================================================
// Each batch applies the single-path operation to every path in input order.
// A failure never stops the batch; when any path failed, a *BatchError listing
// all of them is returned after the last path, even if others succeeded.

// DeleteFiles moves every path to its provider's trash.
func (r *Router) DeleteFiles(ctx context.Context, paths []Path) error {
	return r.batch(ctx, "deleteFiles", paths, r.DeleteFile)
}

// DeleteFilesPermanently removes every path for good.
func (r *Router) DeleteFilesPermanently(ctx context.Context, paths []Path) error {
	return r.batch(ctx, "deleteFilesPermanently", paths, r.DeleteFilePermanently)
}

// RestoreFiles restores every deleted entity.
func (r *Router) RestoreFiles(ctx context.Context, paths []Path) error {
	return r.batch(ctx, "restoreFiles", paths, r.RestoreFile)
}

// CopyFiles copies every path into the folder dst.
func (r *Router) CopyFiles(ctx context.Context, paths []Path, dst Path) error {
	return r.batch(ctx, "copyFiles", paths, func(ctx context.Context, p Path) error {
		return r.CopyFile(ctx, p, dst)
	})
}

// MoveFiles moves every path into the folder dst.
func (r *Router) MoveFiles(ctx context.Context, paths []Path, dst Path) error {
	return r.batch(ctx, "moveFiles", paths, func(ctx context.Context, p Path) error {
		return r.MoveFile(ctx, p, dst)
	})
}

func (r *Router) batch(ctx context.Context, op string, paths []Path, fn func(context.Context, Path) error) error {
	var failures []*OperationError

	for _, p := range paths {
		if err := fn(ctx, p); err != nil {
			r.logger.Debug("batch element failed",
				zap.String("op", op),
				zap.Stringer("path", p),
				zap.Error(err))
			failures = append(failures, r.batchFailure(op, p, err))
		}
	}

	r.metrics.ObserveBatch(op, len(paths), len(failures))

	if len(failures) == 0 {
		return nil
	}
	r.logger.Warn("batch operation failed",
		zap.String("op", op),
		zap.Int("total", len(paths)),
		zap.Int("failed", len(failures)))
	return &BatchError{Op: op, Total: len(paths), Failures: failures}
}

// batchFailure records err for p. An OperationError about p itself is
// flattened so the path is reported once.
func (r *Router) batchFailure(op string, p Path, err error) *OperationError {
	failure := &OperationError{Op: op, Path: p, Err: err}

	if opErr, ok := err.(*OperationError); ok && opErr.Path == p {
		failure.Provider = opErr.Provider
		failure.Err = opErr.Err
	}
	if failure.Provider == "" {
		if owner, ok := r.FindOwner(p); ok {
			failure.Provider = owner.ID()
		}
	}
	return failure
}
