package genfile

import (
	"context"
	"io"
)

// ============================================================================
// Provider Interfaces (Interface Segregation)
// ============================================================================

// ProviderReader provides the query side of a backend.
type ProviderReader interface {
	// GetTree returns the backend's tree. opts.BasePath scopes it; the zero
	// path means the backend's own root.
	GetTree(ctx context.Context, opts GetTreeOptions) (*GenericFileTree, error)

	// GetRootTrees returns the backend's top-level trees.
	GetRootTrees(ctx context.Context, opts GetTreeOptions) ([]*GenericFileTree, error)

	// GetFile returns a single file or folder.
	GetFile(ctx context.Context, p Path, opts GetFileOptions) (*GenericFile, error)

	// GetFileContent streams content. With compressed set, the entry is
	// returned as an archive, which also works for folders.
	GetFileContent(ctx context.Context, p Path, compressed bool) (io.ReadCloser, error)

	// DoesFolderExist checks if a folder exists at p.
	DoesFolderExist(ctx context.Context, p Path) (bool, error)

	// HasAccess reports whether every permission is granted on p.
	HasAccess(ctx context.Context, p Path, perms ...Permission) (bool, error)

	// GetFileMetadata returns the metadata attached to p.
	GetFileMetadata(ctx context.Context, p Path) (Metadata, error)

	// GetDeletedFiles lists soft-deleted, restorable entities.
	GetDeletedFiles(ctx context.Context) ([]*GenericFile, error)
}

// ProviderWriter provides the mutating side of a backend.
type ProviderWriter interface {
	CreateFolder(ctx context.Context, p Path) error

	// SetFileMetadata replaces the metadata attached to p.
	SetFileMetadata(ctx context.Context, p Path, md Metadata) error

	// DeleteFile moves p to the backend's trash.
	DeleteFile(ctx context.Context, p Path) error

	// DeleteFilePermanently removes p, or purges it when p is a trash entry.
	DeleteFilePermanently(ctx context.Context, p Path) error

	// RestoreFile moves a trash entry back to its original location.
	RestoreFile(ctx context.Context, p Path) error

	// RenameFile gives p a new name within its parent folder.
	RenameFile(ctx context.Context, p Path, newName string) error

	// CopyFile copies src into the folder dst, keeping its name.
	CopyFile(ctx context.Context, src, dst Path) error

	// MoveFile moves src into the folder dst, keeping its name.
	MoveFile(ctx context.Context, src, dst Path) error
}

// Provider is a pluggable backend serving one part of the namespace.
type Provider interface {
	// ID identifies the provider. Two providers are the same iff their ids
	// are equal.
	ID() string

	// Owns reports whether p belongs to this provider. It must be pure.
	Owns(p Path) bool

	ProviderReader
	ProviderWriter

	// ClearTreeCache drops any cached trees.
	ClearTreeCache(ctx context.Context) error
}

// sameProvider reports whether a and b are the same backend.
func sameProvider(a, b Provider) bool {
	return a.ID() == b.ID()
}
