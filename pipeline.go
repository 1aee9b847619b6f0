package genfile

import (
	"context"

	"go.uber.org/zap"

	"github.com/gobeaver/genfile/metrics"
)

// Hook names used in logs and metrics.
const (
	hookFile     = "file"
	hookMetadata = "metadata"
	hookTreeNode = "tree_node"
)

// Pipeline runs a Decorator over files, metadata and trees.
//
// Decoration never fails from the caller's point of view: hook errors are
// logged and the entity is returned as far as it got decorated. Panics are
// not recovered.
type Pipeline struct {
	decorator Decorator
	logger    *zap.Logger
	metrics   metrics.RouterMetrics
}

// NewPipeline creates a pipeline around d. A nil decorator behaves like
// NopDecorator and a nil logger discards output.
func NewPipeline(d Decorator, logger *zap.Logger) *Pipeline {
	if d == nil {
		d = NopDecorator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		decorator: d,
		logger:    logger,
		metrics:   metrics.NewNoopRouterMetrics(),
	}
}

// DecorateFile runs the metadata hook (when opts.IncludeMetadata is set and
// the file carries metadata) and then the file hook. A failing metadata hook
// does not prevent the file hook.
func (p *Pipeline) DecorateFile(ctx context.Context, file *GenericFile, opts GetFileOptions) *GenericFile {
	if file == nil {
		return nil
	}

	if opts.IncludeMetadata && file.Metadata != nil {
		if err := p.decorator.DecorateFileMetadata(ctx, file.Metadata, file.Path); err != nil {
			p.failed(hookMetadata, file.Path, err)
		}
	}

	guard := identityOf(file)
	if err := p.decorator.DecorateFile(ctx, file, opts); err != nil {
		p.failed(hookFile, file.Path, err)
	}
	guard.restore(file, p.logger)

	return file
}

// DecorateFileMetadata runs the metadata hook on metadata fetched on its own.
func (p *Pipeline) DecorateFileMetadata(ctx context.Context, md Metadata, path Path) Metadata {
	if err := p.decorator.DecorateFileMetadata(ctx, md, path); err != nil {
		p.failed(hookMetadata, path, err)
	}
	return md
}

// DecorateTree decorates tree in pre-order: each node's file, then the node
// hook, then the children in order. Every node is contained on its own, so a
// failure on one node leaves its siblings and descendants decorated.
func (p *Pipeline) DecorateTree(ctx context.Context, tree *GenericFileTree, opts GetTreeOptions) *GenericFileTree {
	if tree == nil {
		return nil
	}
	p.decorateNode(ctx, tree, opts, opts.FileOptions())
	return tree
}

func (p *Pipeline) decorateNode(ctx context.Context, node *GenericFileTree, opts GetTreeOptions, fileOpts GetFileOptions) {
	if node == nil {
		return
	}

	p.DecorateFile(ctx, node.File, fileOpts)

	var guard identity
	if node.File != nil {
		guard = identityOf(node.File)
	}
	if err := p.decorator.DecorateTreeNode(ctx, node, opts); err != nil {
		p.failed(hookTreeNode, nodePath(node), err)
	}
	if node.File != nil {
		guard.restore(node.File, p.logger)
	}

	for _, child := range node.Children {
		p.decorateNode(ctx, child, opts, fileOpts)
	}
}

// DecorateFiles decorates each file of a flat listing.
func (p *Pipeline) DecorateFiles(ctx context.Context, files []*GenericFile, opts GetFileOptions) []*GenericFile {
	for _, f := range files {
		p.DecorateFile(ctx, f, opts)
	}
	return files
}

func (p *Pipeline) failed(hook string, path Path, err error) {
	p.metrics.DecorationFailure(hook)
	p.logger.Warn("decoration failed",
		zap.String("hook", hook),
		zap.Stringer("path", path),
		zap.Error(err))
}

func nodePath(node *GenericFileTree) Path {
	if node.File == nil {
		return Path{}
	}
	return node.File.Path
}

// identity holds the fields decorators may not change.
type identity struct {
	path     Path
	provider string
	typ      FileType
}

func identityOf(f *GenericFile) identity {
	return identity{path: f.Path, provider: f.Provider, typ: f.Type}
}

func (id identity) restore(f *GenericFile, logger *zap.Logger) {
	if f.Path == id.path && f.Provider == id.provider && f.Type == id.typ {
		return
	}
	logger.Error("decorator changed file identity, reverting",
		zap.Stringer("path", id.path),
		zap.String("provider", id.provider),
		zap.Stringer("new_path", f.Path),
		zap.String("new_provider", f.Provider))
	f.Path = id.path
	f.Provider = id.provider
	f.Type = id.typ
}
