package genfile

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/gobeaver/genfile/metrics"
)

// Router presents several providers as one namespace.
//
// Single-path operations go to the provider owning the path. Whole-namespace
// operations (root trees, the full tree, deleted files) ask every provider and
// merge the answers; one working provider is enough for them to succeed.
//
// The provider list and decorator are fixed at construction. A Router holds no
// locks: it is safe for concurrent use as long as its providers are.
//
// Example:
//
//	router, err := genfile.NewRouter([]genfile.Provider{docs, scratch},
//	    genfile.WithDecorator(genfile.NewContentTypeDecorator()),
//	    genfile.WithLogger(logger),
//	)
//
//	tree, err := router.GetTreeFromRoot(ctx, genfile.GetTreeOptions{})
//	err = router.DeleteFiles(ctx, paths) // *BatchError lists every failed path
type Router struct {
	providers []Provider
	pipeline  *Pipeline
	logger    *zap.Logger
	metrics   metrics.RouterMetrics
}

// NewRouter creates a router over providers, which are consulted in the given
// order when resolving ownership.
func NewRouter(providers []Provider, opts ...RouterOption) (*Router, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: at least one provider is required", ErrInvalidProviderConfiguration)
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: provider %d is nil", ErrInvalidProviderConfiguration, i)
		}
	}

	options := defaultRouterOptions()
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.Logger.Named("router")
	pipeline := NewPipeline(options.Decorator, options.Logger.Named("pipeline"))
	pipeline.metrics = options.Metrics

	return &Router{
		providers: append([]Provider(nil), providers...),
		pipeline:  pipeline,
		logger:    logger,
		metrics:   options.Metrics,
	}, nil
}

// Providers returns a copy of the registered providers in registration order.
func (r *Router) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Pipeline returns the decoration pipeline used by the router.
func (r *Router) Pipeline() *Pipeline {
	return r.pipeline
}

// FindOwner returns the first registered provider that owns p.
func (r *Router) FindOwner(p Path) (Provider, bool) {
	for _, provider := range r.providers {
		if provider.Owns(p) {
			return provider, true
		}
	}
	return nil, false
}

// owner resolves the provider for a single-path operation.
func (r *Router) owner(op string, p Path) (Provider, error) {
	provider, ok := r.FindOwner(p)
	if !ok {
		return nil, &OperationError{Op: op, Path: p, Err: ErrNotFound}
	}
	return provider, nil
}

// single returns the only provider when exactly one is registered.
func (r *Router) single() (Provider, bool) {
	if len(r.providers) == 1 {
		return r.providers[0], true
	}
	return nil, false
}

// collect calls fn on every provider in registration order. Failures are
// logged and the first one is kept; it is returned only when no provider
// succeeded.
func collect[T any](ctx context.Context, r *Router, op string, fn func(context.Context, Provider) (T, error)) ([]T, error) {
	results := make([]T, 0, len(r.providers))
	var firstErr error

	for _, provider := range r.providers {
		res, err := fn(ctx, provider)
		if err != nil {
			r.metrics.ProviderFailure(op, provider.ID())
			r.logger.Warn("provider failed during aggregation",
				zap.String("op", op),
				zap.String("provider", provider.ID()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}

	switch {
	case len(results) == 0:
		r.metrics.ObserveAggregation(op, metrics.OutcomeFailed)
		return nil, firstErr
	case firstErr != nil:
		r.metrics.ObserveAggregation(op, metrics.OutcomePartial)
	default:
		r.metrics.ObserveAggregation(op, metrics.OutcomeComplete)
	}
	return results, nil
}

// ============================================================================
// Whole-Namespace Operations
// ============================================================================

// GetRootTrees returns the top-level trees of every provider, in registration
// order.
func (r *Router) GetRootTrees(ctx context.Context, opts GetTreeOptions) ([]*GenericFileTree, error) {
	var trees []*GenericFileTree

	if provider, ok := r.single(); ok {
		var err error
		trees, err = provider.GetRootTrees(ctx, opts)
		if err != nil {
			return nil, err
		}
	} else {
		perProvider, err := collect(ctx, r, "getRootTrees", func(ctx context.Context, p Provider) ([]*GenericFileTree, error) {
			return p.GetRootTrees(ctx, opts)
		})
		if err != nil {
			return nil, err
		}
		trees = make([]*GenericFileTree, 0, len(perProvider))
		for _, t := range perProvider {
			trees = append(trees, t...)
		}
	}

	for _, t := range trees {
		r.pipeline.DecorateTree(ctx, t, opts)
	}
	return trees, nil
}

// GetTreeFromRoot returns the tree of the whole namespace. opts.BasePath is
// ignored. With several providers their trees hang below a synthetic "root"
// folder owned by CombinedProviderID.
func (r *Router) GetTreeFromRoot(ctx context.Context, opts GetTreeOptions) (*GenericFileTree, error) {
	opts.BasePath = Path{}

	if provider, ok := r.single(); ok {
		tree, err := provider.GetTree(ctx, opts)
		if err != nil {
			return nil, err
		}
		return r.pipeline.DecorateTree(ctx, tree, opts), nil
	}

	trees, err := collect(ctx, r, "getTreeFromRoot", func(ctx context.Context, p Provider) (*GenericFileTree, error) {
		return p.GetTree(ctx, opts)
	})
	if err != nil {
		return nil, err
	}

	return r.pipeline.DecorateTree(ctx, newCombinedRoot(trees), opts), nil
}

// GetTree returns the tree below opts.BasePath, or the whole namespace when no
// base path is set.
func (r *Router) GetTree(ctx context.Context, opts GetTreeOptions) (*GenericFileTree, error) {
	if opts.BasePath.IsZero() {
		return r.GetTreeFromRoot(ctx, opts)
	}

	provider, err := r.owner("getTree", opts.BasePath)
	if err != nil {
		return nil, err
	}
	tree, err := provider.GetTree(ctx, opts)
	if err != nil {
		return nil, err
	}
	return r.pipeline.DecorateTree(ctx, tree, opts), nil
}

// GetDeletedFiles lists restorable entities of every provider.
func (r *Router) GetDeletedFiles(ctx context.Context) ([]*GenericFile, error) {
	var files []*GenericFile

	if provider, ok := r.single(); ok {
		var err error
		files, err = provider.GetDeletedFiles(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		perProvider, err := collect(ctx, r, "getDeletedFiles", func(ctx context.Context, p Provider) ([]*GenericFile, error) {
			return p.GetDeletedFiles(ctx)
		})
		if err != nil {
			return nil, err
		}
		for _, f := range perProvider {
			files = append(files, f...)
		}
	}

	return r.pipeline.DecorateFiles(ctx, files, GetFileOptions{}), nil
}

// ClearTreeCache asks every provider to drop its cached trees. Failures are
// logged and otherwise ignored.
func (r *Router) ClearTreeCache(ctx context.Context) {
	for _, provider := range r.providers {
		if err := provider.ClearTreeCache(ctx); err != nil {
			r.metrics.ProviderFailure("clearTreeCache", provider.ID())
			r.logger.Warn("failed to clear tree cache",
				zap.String("provider", provider.ID()),
				zap.Error(err))
		}
	}
}

// ============================================================================
// Single-Path Operations
// ============================================================================

// GetFile returns the decorated file at p.
func (r *Router) GetFile(ctx context.Context, p Path, opts GetFileOptions) (*GenericFile, error) {
	provider, err := r.owner("getFile", p)
	if err != nil {
		return nil, err
	}
	file, err := provider.GetFile(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	return r.pipeline.DecorateFile(ctx, file, opts), nil
}

// GetFileContent streams the content of p, archived when compressed is set.
func (r *Router) GetFileContent(ctx context.Context, p Path, compressed bool) (io.ReadCloser, error) {
	provider, err := r.owner("getFileContent", p)
	if err != nil {
		return nil, err
	}
	return provider.GetFileContent(ctx, p, compressed)
}

// DoesFolderExist reports whether a folder exists at p. An unowned path is
// reported as missing rather than as an error.
func (r *Router) DoesFolderExist(ctx context.Context, p Path) (bool, error) {
	provider, ok := r.FindOwner(p)
	if !ok {
		return false, nil
	}
	return provider.DoesFolderExist(ctx, p)
}

// HasAccess reports whether every permission is granted on p. An unowned path
// has no access rather than an error.
func (r *Router) HasAccess(ctx context.Context, p Path, perms ...Permission) (bool, error) {
	provider, ok := r.FindOwner(p)
	if !ok {
		return false, nil
	}
	return provider.HasAccess(ctx, p, perms...)
}

// CreateFolder creates a folder at p.
func (r *Router) CreateFolder(ctx context.Context, p Path) error {
	provider, err := r.owner("createFolder", p)
	if err != nil {
		return err
	}
	return provider.CreateFolder(ctx, p)
}

// GetFileMetadata returns the decorated metadata of p.
func (r *Router) GetFileMetadata(ctx context.Context, p Path) (Metadata, error) {
	provider, err := r.owner("getFileMetadata", p)
	if err != nil {
		return nil, err
	}
	md, err := provider.GetFileMetadata(ctx, p)
	if err != nil {
		return nil, err
	}
	return r.pipeline.DecorateFileMetadata(ctx, md, p), nil
}

// SetFileMetadata replaces the metadata of p.
func (r *Router) SetFileMetadata(ctx context.Context, p Path, md Metadata) error {
	provider, err := r.owner("setFileMetadata", p)
	if err != nil {
		return err
	}
	return provider.SetFileMetadata(ctx, p, md)
}

// RenameFile renames p within its folder.
func (r *Router) RenameFile(ctx context.Context, p Path, newName string) error {
	provider, err := r.owner("renameFile", p)
	if err != nil {
		return err
	}
	return provider.RenameFile(ctx, p, newName)
}

// DeleteFile moves p to its provider's trash.
func (r *Router) DeleteFile(ctx context.Context, p Path) error {
	provider, err := r.owner("deleteFile", p)
	if err != nil {
		return err
	}
	return provider.DeleteFile(ctx, p)
}

// DeleteFilePermanently removes p for good.
func (r *Router) DeleteFilePermanently(ctx context.Context, p Path) error {
	provider, err := r.owner("deleteFilePermanently", p)
	if err != nil {
		return err
	}
	return provider.DeleteFilePermanently(ctx, p)
}

// RestoreFile restores a deleted entity to its original location.
func (r *Router) RestoreFile(ctx context.Context, p Path) error {
	provider, err := r.owner("restoreFile", p)
	if err != nil {
		return err
	}
	return provider.RestoreFile(ctx, p)
}

// ============================================================================
// Same-Provider Operations
// ============================================================================

// CopyFile copies src into the folder dst. Both must belong to the same
// provider; copying across providers fails with ErrUnsupportedOperation.
func (r *Router) CopyFile(ctx context.Context, src, dst Path) error {
	provider, err := r.sameOwner("copyFile", src, dst)
	if err != nil {
		return err
	}
	return provider.CopyFile(ctx, src, dst)
}

// MoveFile moves src into the folder dst. Both must belong to the same
// provider; moving across providers fails with ErrUnsupportedOperation.
func (r *Router) MoveFile(ctx context.Context, src, dst Path) error {
	provider, err := r.sameOwner("moveFile", src, dst)
	if err != nil {
		return err
	}
	return provider.MoveFile(ctx, src, dst)
}

// sameOwner resolves both paths and checks that one provider owns them.
func (r *Router) sameOwner(op string, src, dst Path) (Provider, error) {
	srcProvider, err := r.owner(op, src)
	if err != nil {
		return nil, err
	}
	dstProvider, err := r.owner(op, dst)
	if err != nil {
		return nil, err
	}
	if !sameProvider(srcProvider, dstProvider) {
		return nil, &OperationError{
			Op:   op,
			Path: src,
			Err: fmt.Errorf("%w: %s belongs to %q, %s belongs to %q",
				ErrUnsupportedOperation, src, srcProvider.ID(), dst, dstProvider.ID()),
		}
	}
	return srcProvider, nil
}
