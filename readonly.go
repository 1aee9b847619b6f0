package genfile

import (
	"context"
	"errors"
	"io"
)

// ErrReadOnly is returned when a write operation targets a read-only provider.
var ErrReadOnly = errors.New("provider is read-only")

// ============================================================================
// ReadOnlyProvider Wrapper
// ============================================================================

// ReadOnlyProvider wraps a Provider to block every write operation.
// Reads, ownership and identity are delegated unchanged, so the wrapper can
// be registered with a Router in place of the provider it wraps.
//
// Example:
//
//	archive := genfile.NewReadOnlyProvider(archiveProvider)
//	router, _ := genfile.NewRouter([]genfile.Provider{docs, archive})
//
//	err := router.DeleteFile(ctx, genfile.MustParsePath("/archive/2019.pdf"))
//	// genfile.IsReadOnly(err) == true
type ReadOnlyProvider struct {
	provider Provider
	opts     ReadOnlyOptions
}

// ReadOnlyOptions configures the ReadOnlyProvider behavior.
type ReadOnlyOptions struct {
	// AllowCreateFolder permits folder creation even in read-only mode.
	// Default: false
	AllowCreateFolder bool

	// AllowDelete permits soft deletion and restore in read-only mode.
	// Permanent deletion stays blocked.
	// Default: false
	AllowDelete bool

	// OnWriteAttempt is called when a write operation is attempted.
	// If it returns nil, the write is allowed.
	OnWriteAttempt func(op string, p Path) error
}

// ReadOnlyOption is a functional option for configuring ReadOnlyProvider.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithAllowCreateFolder allows folder creation in read-only mode.
func WithAllowCreateFolder(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowCreateFolder = allow
	}
}

// WithAllowDelete allows soft deletion and restore in read-only mode.
func WithAllowDelete(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowDelete = allow
	}
}

// WithWriteAttemptHandler sets a custom handler for write attempts.
func WithWriteAttemptHandler(handler func(op string, p Path) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.OnWriteAttempt = handler
	}
}

// NewReadOnlyProvider creates a read-only wrapper around a Provider.
func NewReadOnlyProvider(provider Provider, opts ...ReadOnlyOption) *ReadOnlyProvider {
	var options ReadOnlyOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &ReadOnlyProvider{provider: provider, opts: options}
}

// Unwrap returns the underlying Provider.
func (r *ReadOnlyProvider) Unwrap() Provider {
	return r.provider
}

// readOnlyError creates an appropriate error for write operations.
func (r *ReadOnlyProvider) readOnlyError(op string, p Path) error {
	if r.opts.OnWriteAttempt != nil {
		if err := r.opts.OnWriteAttempt(op, p); err != nil {
			return &OperationError{Op: op, Path: p, Provider: r.provider.ID(), Err: err}
		}
		return nil
	}
	return &OperationError{Op: op, Path: p, Provider: r.provider.ID(), Err: ErrReadOnly}
}

// ============================================================================
// Identity and Read Operations (Delegated)
// ============================================================================

func (r *ReadOnlyProvider) ID() string {
	return r.provider.ID()
}

func (r *ReadOnlyProvider) Owns(p Path) bool {
	return r.provider.Owns(p)
}

func (r *ReadOnlyProvider) GetTree(ctx context.Context, opts GetTreeOptions) (*GenericFileTree, error) {
	tree, err := r.provider.GetTree(ctx, opts)
	if err != nil {
		return nil, err
	}
	tree.Walk(func(node *GenericFileTree) bool {
		r.restrict(node.File)
		return true
	})
	return tree, nil
}

func (r *ReadOnlyProvider) GetRootTrees(ctx context.Context, opts GetTreeOptions) ([]*GenericFileTree, error) {
	trees, err := r.provider.GetRootTrees(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, tree := range trees {
		tree.Walk(func(node *GenericFileTree) bool {
			r.restrict(node.File)
			return true
		})
	}
	return trees, nil
}

func (r *ReadOnlyProvider) GetFile(ctx context.Context, p Path, opts GetFileOptions) (*GenericFile, error) {
	file, err := r.provider.GetFile(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	r.restrict(file)
	return file, nil
}

func (r *ReadOnlyProvider) GetFileContent(ctx context.Context, p Path, compressed bool) (io.ReadCloser, error) {
	return r.provider.GetFileContent(ctx, p, compressed)
}

func (r *ReadOnlyProvider) DoesFolderExist(ctx context.Context, p Path) (bool, error) {
	return r.provider.DoesFolderExist(ctx, p)
}

// HasAccess denies any permission other than read.
func (r *ReadOnlyProvider) HasAccess(ctx context.Context, p Path, perms ...Permission) (bool, error) {
	for _, perm := range perms {
		if !r.allows(perm) {
			return false, nil
		}
	}
	return r.provider.HasAccess(ctx, p, perms...)
}

func (r *ReadOnlyProvider) GetFileMetadata(ctx context.Context, p Path) (Metadata, error) {
	return r.provider.GetFileMetadata(ctx, p)
}

func (r *ReadOnlyProvider) GetDeletedFiles(ctx context.Context) ([]*GenericFile, error) {
	return r.provider.GetDeletedFiles(ctx)
}

func (r *ReadOnlyProvider) ClearTreeCache(ctx context.Context) error {
	return r.provider.ClearTreeCache(ctx)
}

// ============================================================================
// Write Operations (Blocked)
// ============================================================================

// CreateFolder returns ErrReadOnly unless AllowCreateFolder is enabled.
func (r *ReadOnlyProvider) CreateFolder(ctx context.Context, p Path) error {
	if !r.opts.AllowCreateFolder {
		if err := r.readOnlyError("createFolder", p); err != nil {
			return err
		}
	}
	return r.provider.CreateFolder(ctx, p)
}

// SetFileMetadata returns ErrReadOnly.
func (r *ReadOnlyProvider) SetFileMetadata(ctx context.Context, p Path, md Metadata) error {
	if err := r.readOnlyError("setFileMetadata", p); err != nil {
		return err
	}
	return r.provider.SetFileMetadata(ctx, p, md)
}

// DeleteFile returns ErrReadOnly unless AllowDelete is enabled.
func (r *ReadOnlyProvider) DeleteFile(ctx context.Context, p Path) error {
	if !r.opts.AllowDelete {
		if err := r.readOnlyError("deleteFile", p); err != nil {
			return err
		}
	}
	return r.provider.DeleteFile(ctx, p)
}

// DeleteFilePermanently returns ErrReadOnly.
func (r *ReadOnlyProvider) DeleteFilePermanently(ctx context.Context, p Path) error {
	if err := r.readOnlyError("deleteFilePermanently", p); err != nil {
		return err
	}
	return r.provider.DeleteFilePermanently(ctx, p)
}

// RestoreFile returns ErrReadOnly unless AllowDelete is enabled.
func (r *ReadOnlyProvider) RestoreFile(ctx context.Context, p Path) error {
	if !r.opts.AllowDelete {
		if err := r.readOnlyError("restoreFile", p); err != nil {
			return err
		}
	}
	return r.provider.RestoreFile(ctx, p)
}

// RenameFile returns ErrReadOnly.
func (r *ReadOnlyProvider) RenameFile(ctx context.Context, p Path, newName string) error {
	if err := r.readOnlyError("renameFile", p); err != nil {
		return err
	}
	return r.provider.RenameFile(ctx, p, newName)
}

// CopyFile returns ErrReadOnly.
func (r *ReadOnlyProvider) CopyFile(ctx context.Context, src, dst Path) error {
	if err := r.readOnlyError("copyFile", src); err != nil {
		return err
	}
	return r.provider.CopyFile(ctx, src, dst)
}

// MoveFile returns ErrReadOnly.
func (r *ReadOnlyProvider) MoveFile(ctx context.Context, src, dst Path) error {
	if err := r.readOnlyError("moveFile", src); err != nil {
		return err
	}
	return r.provider.MoveFile(ctx, src, dst)
}

// ============================================================================
// Helpers
// ============================================================================

func (r *ReadOnlyProvider) allows(perm Permission) bool {
	switch perm {
	case PermissionRead:
		return true
	case PermissionCreate:
		return r.opts.AllowCreateFolder
	case PermissionDelete:
		return r.opts.AllowDelete
	default:
		return false
	}
}

// restrict clears the capability flags the wrapper would refuse.
func (r *ReadOnlyProvider) restrict(f *GenericFile) {
	if f == nil {
		return
	}
	f.CanEdit = false
	f.CanDelete = f.CanDelete && r.opts.AllowDelete
	f.CanAddChildren = f.CanAddChildren && r.opts.AllowCreateFolder
}

var _ Provider = (*ReadOnlyProvider)(nil)
