package afs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gobeaver/genfile"
)

var errMountRoot = fmt.Errorf("%w: the mount root cannot be changed", genfile.ErrPermission)

// CreateFolder implements genfile.Provider. Missing parents are created.
func (p *Provider) CreateFolder(ctx context.Context, np genfile.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := p.visible("createFolder", np)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	exists, err := afero.Exists(p.fs, rel)
	if err != nil {
		return p.opError("createFolder", np, err)
	}
	if exists {
		return p.opError("createFolder", np, genfile.ErrExist)
	}
	if err := p.fs.MkdirAll(rel, 0755); err != nil {
		return p.opError("createFolder", np, err)
	}
	p.logger.Debug("folder created", zap.Stringer("path", np))
	return nil
}

// RenameFile implements genfile.Provider.
func (p *Provider) RenameFile(ctx context.Context, np genfile.Path, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(newName); err != nil {
		return p.opError("renameFile", np, err)
	}
	rel, err := p.visible("renameFile", np)
	if err != nil {
		return err
	}
	if rel == "/" {
		return p.opError("renameFile", np, errMountRoot)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	if _, err := p.fs.Stat(rel); err != nil {
		return p.opError("renameFile", np, err)
	}
	target := path.Join(path.Dir(rel), newName)
	if target == rel {
		return nil
	}
	if err := p.ensureFree(target); err != nil {
		return p.opError("renameFile", np, err)
	}
	if err := p.move(rel, target); err != nil {
		return p.opError("renameFile", np, err)
	}
	if err := p.moveMetadata(rel, target); err != nil {
		return p.opError("renameFile", np, err)
	}
	return nil
}

// CopyFile implements genfile.Provider.
func (p *Provider) CopyFile(ctx context.Context, src, dst genfile.Path) error {
	return p.transfer(ctx, "copyFile", src, dst, false)
}

// MoveFile implements genfile.Provider.
func (p *Provider) MoveFile(ctx context.Context, src, dst genfile.Path) error {
	return p.transfer(ctx, "moveFile", src, dst, true)
}

// transfer copies or moves src into the folder dst.
func (p *Provider) transfer(ctx context.Context, op string, src, dst genfile.Path, move bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcRel, err := p.visible(op, src)
	if err != nil {
		return err
	}
	dstRel, err := p.visible(op, dst)
	if err != nil {
		return err
	}
	if srcRel == "/" {
		return p.opError(op, src, errMountRoot)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	srcInfo, err := p.fs.Stat(srcRel)
	if err != nil {
		return p.opError(op, src, err)
	}
	dstInfo, err := p.fs.Stat(dstRel)
	if err != nil {
		return p.opError(op, dst, err)
	}
	if !dstInfo.IsDir() {
		return p.opError(op, dst, genfile.ErrNotDir)
	}
	if srcInfo.IsDir() && (dstRel == srcRel || strings.HasPrefix(dstRel, srcRel+"/")) {
		return p.opError(op, src, fmt.Errorf("%w: cannot place a folder inside itself", genfile.ErrInvalidPath))
	}

	target := path.Join(dstRel, path.Base(srcRel))
	if move && target == srcRel {
		return nil
	}
	if err := p.ensureFree(target); err != nil {
		return p.opError(op, src, err)
	}

	if move {
		err = p.move(srcRel, target)
		if err == nil {
			err = p.moveMetadata(srcRel, target)
		}
	} else {
		err = p.copy(srcRel, target)
		if err == nil {
			err = p.copyMetadata(srcRel, target)
		}
	}
	if err != nil {
		return p.opError(op, src, err)
	}
	return nil
}

// DeleteFilePermanently implements genfile.Provider. Trash entries are
// purged together with their trash record.
func (p *Provider) DeleteFilePermanently(ctx context.Context, np genfile.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := p.resolve("deleteFilePermanently", np)
	if err != nil {
		return err
	}
	if id, ok := trashID(rel); ok {
		return p.purge(np, id)
	}
	if isHidden(rel) {
		return p.opError("deleteFilePermanently", np, genfile.ErrNotExist)
	}
	if rel == "/" {
		return p.opError("deleteFilePermanently", np, errMountRoot)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	if _, err := p.fs.Stat(rel); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	if err := p.fs.RemoveAll(rel); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	if err := p.removeMetadata(rel); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	p.logger.Debug("deleted permanently", zap.Stringer("path", np))
	return nil
}

// validateName checks a single path segment.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", genfile.ErrInvalidName, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q contains '/' or NUL", genfile.ErrInvalidName, name)
	case isHidden("/" + name):
		return fmt.Errorf("%w: %q is reserved", genfile.ErrInvalidName, name)
	}
	return nil
}

// ensureFree fails with ErrExist when something lives at rel.
func (p *Provider) ensureFree(rel string) error {
	exists, err := afero.Exists(p.fs, rel)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", genfile.ErrExist, rel)
	}
	return nil
}

// ============================================================================
// Filesystem Helpers
// ============================================================================

// move renames src to dst. MemMapFs renames only the directory entry itself,
// so folders there are copied and removed instead.
func (p *Provider) move(src, dst string) error {
	info, err := p.fs.Stat(src)
	if err != nil {
		return err
	}
	if _, inMemory := p.fs.(*afero.MemMapFs); inMemory && info.IsDir() {
		if err := p.copy(src, dst); err != nil {
			return err
		}
		return p.fs.RemoveAll(src)
	}
	return p.fs.Rename(src, dst)
}

// copy copies the file or folder src to dst.
func (p *Provider) copy(src, dst string) error {
	return afero.Walk(p.fs, src, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		target := dst + strings.TrimPrefix(name, src)
		if info.IsDir() {
			return p.fs.MkdirAll(target, info.Mode().Perm()|0700)
		}
		return p.copyFile(name, target, info.Mode().Perm()|0600)
	})
}

func (p *Provider) copyFile(src, dst string, perm os.FileMode) error {
	in, err := p.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := p.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
