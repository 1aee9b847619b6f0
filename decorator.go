package genfile

import (
	"context"

	"go.uber.org/multierr"
)

// Decorator post-processes entities returned by providers.
//
// Hooks may add or derive presentational and metadata fields. They must not
// change a file's Path, Provider or Type. A DecorateTreeNode implementation
// must not call back into the pipeline's DecorateFile: the pipeline has
// already decorated node.File when the hook runs.
//
// Embed NopDecorator to implement only the hooks you need:
//
//	type ownerBadge struct {
//	    genfile.NopDecorator
//	}
//
//	func (ownerBadge) DecorateFile(ctx context.Context, f *genfile.GenericFile, _ genfile.GetFileOptions) error {
//	    f.SetAttribute("badge", f.Owner)
//	    return nil
//	}
type Decorator interface {
	DecorateFile(ctx context.Context, file *GenericFile, opts GetFileOptions) error
	DecorateFileMetadata(ctx context.Context, md Metadata, p Path) error
	DecorateTreeNode(ctx context.Context, node *GenericFileTree, opts GetTreeOptions) error
}

// NopDecorator leaves everything untouched.
type NopDecorator struct{}

func (NopDecorator) DecorateFile(context.Context, *GenericFile, GetFileOptions) error {
	return nil
}

func (NopDecorator) DecorateFileMetadata(context.Context, Metadata, Path) error {
	return nil
}

func (NopDecorator) DecorateTreeNode(context.Context, *GenericFileTree, GetTreeOptions) error {
	return nil
}

// Chain runs several decorators in order as one. Every member runs even when
// an earlier one fails; the failures are combined.
func Chain(decorators ...Decorator) Decorator {
	return chain(append([]Decorator(nil), decorators...))
}

type chain []Decorator

func (c chain) DecorateFile(ctx context.Context, file *GenericFile, opts GetFileOptions) error {
	var err error
	for _, d := range c {
		err = multierr.Append(err, d.DecorateFile(ctx, file, opts))
	}
	return err
}

func (c chain) DecorateFileMetadata(ctx context.Context, md Metadata, p Path) error {
	var err error
	for _, d := range c {
		err = multierr.Append(err, d.DecorateFileMetadata(ctx, md, p))
	}
	return err
}

func (c chain) DecorateTreeNode(ctx context.Context, node *GenericFileTree, opts GetTreeOptions) error {
	var err error
	for _, d := range c {
		err = multierr.Append(err, d.DecorateTreeNode(ctx, node, opts))
	}
	return err
}

var (
	_ Decorator = NopDecorator{}
	_ Decorator = chain(nil)
)
