// Package afs provides genfile providers backed by an afero filesystem.
//
// Each provider serves the "/<id>" subtree of the namespace. Bookkeeping
// (metadata sidecars and the trash) lives in a hidden ".genfile" folder at
// the root of the filesystem and never shows up in listings.
package afs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gobeaver/genfile"
)

const (
	// KindLocal serves a directory of the local disk.
	KindLocal = "local"
	// KindMemory serves an in-memory filesystem, mostly for tests.
	KindMemory = "memory"
)

const (
	hiddenDir = "/.genfile"
	metaDir   = hiddenDir + "/meta"
	trashDir  = hiddenDir + "/trash"
)

// Provider is a genfile.Provider over an afero.Fs.
type Provider struct {
	id    string
	mount genfile.Path
	fs    afero.Fs

	actor  string
	cache  *genfile.TreeCache
	logger *zap.Logger
	now    func() time.Time

	// mu serializes writes so that content, sidecars and trash records stay
	// consistent with each other.
	mu sync.RWMutex
}

// Option configures a Provider.
type Option func(*Provider)

// WithActor sets the user recorded as owner, creator and deleter.
func WithActor(actor string) Option {
	return func(p *Provider) {
		if actor != "" {
			p.actor = actor
		}
	}
}

// WithTreeCacheTTL sets how long trees are cached. 0 keeps them until the
// next write.
func WithTreeCacheTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.cache = genfile.NewTreeCache(ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a provider serving "/<id>" from fsys.
func New(id string, fsys afero.Fs, opts ...Option) (*Provider, error) {
	if id == "" || strings.ContainsAny(id, "/\x00") || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: invalid provider id %q", genfile.ErrInvalidProviderConfiguration, id)
	}
	if fsys == nil {
		return nil, fmt.Errorf("%w: provider %s has no filesystem", genfile.ErrInvalidProviderConfiguration, id)
	}

	p := &Provider{
		id:     id,
		mount:  genfile.RootPath().Join(id),
		fs:     fsys,
		actor:  "system",
		cache:  genfile.NewTreeCache(0),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("provider", id))
	return p, nil
}

// NewMemory creates a provider over a fresh in-memory filesystem.
func NewMemory(id string, opts ...Option) (*Provider, error) {
	return New(id, afero.NewMemMapFs(), opts...)
}

// NewLocal creates a provider over the directory root, creating it if needed.
func NewLocal(id, root string, opts ...Option) (*Provider, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: local provider %s needs a root directory", genfile.ErrInvalidProviderConfiguration, id)
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", root, err)
	}
	return New(id, afero.NewBasePathFs(osFs, root), opts...)
}

// ID implements genfile.Provider.
func (p *Provider) ID() string {
	return p.id
}

// MountPath returns the namespace subtree served by p.
func (p *Provider) MountPath() genfile.Path {
	return p.mount
}

// Owns implements genfile.Provider.
func (p *Provider) Owns(np genfile.Path) bool {
	return np.HasPrefix(p.mount)
}

// ClearTreeCache implements genfile.Provider.
func (p *Provider) ClearTreeCache(_ context.Context) error {
	p.cache.Clear()
	return nil
}

// CacheStats returns tree cache statistics.
func (p *Provider) CacheStats() genfile.CacheStatistics {
	return p.cache.Stats()
}

// ============================================================================
// Path Mapping
// ============================================================================

// resolve maps a namespace path to a path inside the filesystem.
func (p *Provider) resolve(op string, np genfile.Path) (string, error) {
	rel, ok := np.Rel(p.mount)
	if !ok {
		return "", p.opError(op, np, genfile.ErrNotFound)
	}
	return rel, nil
}

// visible resolves np and rejects the hidden bookkeeping folder.
func (p *Provider) visible(op string, np genfile.Path) (string, error) {
	rel, err := p.resolve(op, np)
	if err != nil {
		return "", err
	}
	if isHidden(rel) {
		return "", p.opError(op, np, genfile.ErrNotExist)
	}
	return rel, nil
}

// toNamespace maps a filesystem path back into the namespace.
func (p *Provider) toNamespace(rel string) genfile.Path {
	if rel == "/" {
		return p.mount
	}
	return p.mount.Join(rel)
}

func isHidden(rel string) bool {
	return rel == hiddenDir || strings.HasPrefix(rel, hiddenDir+"/")
}

func (p *Provider) opError(op string, np genfile.Path, err error) error {
	return &genfile.OperationError{Op: op, Path: np, Provider: p.id, Err: mapError(err)}
}

// mapError translates filesystem errors into genfile errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", genfile.ErrNotExist, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %v", genfile.ErrExist, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", genfile.ErrPermission, err)
	default:
		return err
	}
}

// ============================================================================
// Reads
// ============================================================================

// GetFile implements genfile.Provider.
func (p *Provider) GetFile(ctx context.Context, np genfile.Path, opts genfile.GetFileOptions) (*genfile.GenericFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := p.visible("getFile", np)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	info, err := p.fs.Stat(rel)
	if err != nil {
		return nil, p.opError("getFile", np, err)
	}
	file := p.toFile(rel, info)
	if opts.IncludeMetadata {
		md, err := p.readMetadata(rel)
		if err != nil {
			return nil, p.opError("getFile", np, err)
		}
		file.Metadata = md
	}
	return file, nil
}

// DoesFolderExist implements genfile.Provider.
func (p *Provider) DoesFolderExist(ctx context.Context, np genfile.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rel, ok := np.Rel(p.mount)
	if !ok || isHidden(rel) {
		return false, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return afero.DirExists(p.fs, rel)
}

// HasAccess implements genfile.Provider. Every permission is granted on
// existing paths; restrictions come from wrapping the provider, e.g. in a
// genfile.ReadOnlyProvider.
func (p *Provider) HasAccess(ctx context.Context, np genfile.Path, _ ...genfile.Permission) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rel, ok := np.Rel(p.mount)
	if !ok || isHidden(rel) {
		return false, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return afero.Exists(p.fs, rel)
}

// toFile builds the GenericFile for the entry at rel. Callers hold mu.
func (p *Provider) toFile(rel string, info os.FileInfo) *genfile.GenericFile {
	np := p.toNamespace(rel)
	isRoot := rel == "/"

	file := &genfile.GenericFile{
		Provider:   p.id,
		Name:       np.Name(),
		Path:       np,
		ParentPath: np.Parent(),
		Type:       genfile.FileTypeFile,
		Created:    info.ModTime(),
		Modified:   info.ModTime(),
		CreatedBy:  p.actor,
		Owner:      p.actor,
		CanEdit:    !isRoot,
		CanDelete:  !isRoot,
	}
	if info.IsDir() {
		file.Type = genfile.FileTypeFolder
		file.CanAddChildren = true
		file.HasChildren = p.hasChildren(rel)
	} else {
		file.Size = info.Size()
	}
	return file
}

// hasChildren reports whether the folder at rel has visible entries.
func (p *Provider) hasChildren(rel string) bool {
	entries, err := p.readDir(rel)
	return err == nil && len(entries) > 0
}

// readDir lists the visible entries of rel, sorted by name.
func (p *Provider) readDir(rel string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(p.fs, rel)
	if err != nil {
		return nil, err
	}
	if rel != "/" {
		return entries, nil
	}
	visible := entries[:0]
	for _, e := range entries {
		if path.Join(rel, e.Name()) == hiddenDir {
			continue
		}
		visible = append(visible, e)
	}
	return visible, nil
}

var _ genfile.Provider = (*Provider)(nil)
