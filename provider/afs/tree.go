package afs

import (
	"context"
	"os"
	"path"

	"github.com/gobeaver/genfile"
)

// GetTree implements genfile.Provider. The zero base path means the mount
// root.
func (p *Provider) GetTree(ctx context.Context, opts genfile.GetTreeOptions) (*genfile.GenericFileTree, error) {
	base := opts.BasePath
	if base.IsZero() {
		base = p.mount
	}
	rel, err := p.visible("getTree", base)
	if err != nil {
		return nil, err
	}

	key := genfile.TreeCacheKey(p.id, opts)
	if tree, ok := p.cache.Get(key); ok {
		return tree, nil
	}

	p.mu.RLock()
	info, err := p.fs.Stat(rel)
	if err != nil {
		p.mu.RUnlock()
		return nil, p.opError("getTree", base, err)
	}
	tree, err := p.buildTree(ctx, rel, info, opts.IncludeMetadata, -1)
	if err != nil {
		p.mu.RUnlock()
		return nil, p.opError("getTree", base, err)
	}
	// Set under the read lock: writers clear the cache while holding mu.
	p.cache.Set(key, tree)
	p.mu.RUnlock()
	return tree, nil
}

// GetRootTrees implements genfile.Provider. A provider has a single root
// tree: its mount folder with the top-level entries as unexpanded children.
func (p *Provider) GetRootTrees(ctx context.Context, opts genfile.GetTreeOptions) ([]*genfile.GenericFileTree, error) {
	opts.BasePath = genfile.Path{}
	key := genfile.TreeCacheKey(p.id+"#roots", opts)
	if tree, ok := p.cache.Get(key); ok {
		return []*genfile.GenericFileTree{tree}, nil
	}

	p.mu.RLock()
	info, err := p.fs.Stat("/")
	if err != nil {
		p.mu.RUnlock()
		return nil, p.opError("getRootTrees", p.mount, err)
	}
	tree, err := p.buildTree(ctx, "/", info, opts.IncludeMetadata, 1)
	if err != nil {
		p.mu.RUnlock()
		return nil, p.opError("getRootTrees", p.mount, err)
	}
	p.cache.Set(key, tree)
	p.mu.RUnlock()
	return []*genfile.GenericFileTree{tree}, nil
}

// buildTree builds the tree below rel, descending depth levels (-1 for all).
// Callers hold mu.
func (p *Provider) buildTree(ctx context.Context, rel string, info os.FileInfo, withMetadata bool, depth int) (*genfile.GenericFileTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node := &genfile.GenericFileTree{File: p.toFile(rel, info)}
	if withMetadata {
		md, err := p.readMetadata(rel)
		if err != nil {
			return nil, err
		}
		node.File.Metadata = md
	}
	if !info.IsDir() || depth == 0 {
		return node, nil
	}

	entries, err := p.readDir(rel)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		child, err := p.buildTree(ctx, path.Join(rel, entry.Name()), entry, withMetadata, depth-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
