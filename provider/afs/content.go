package afs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/gobeaver/genfile"
)

// GetFileContent implements genfile.Provider. Uncompressed content is only
// available for files; with compressed set, files and folders are returned
// as a zip archive named after the entry.
func (p *Provider) GetFileContent(ctx context.Context, np genfile.Path, compressed bool) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := p.visible("getFileContent", np)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	info, err := p.fs.Stat(rel)
	if err != nil {
		return nil, p.opError("getFileContent", np, err)
	}

	if !compressed {
		if info.IsDir() {
			return nil, p.opError("getFileContent", np, genfile.ErrIsDir)
		}
		f, err := p.fs.Open(rel)
		if err != nil {
			return nil, p.opError("getFileContent", np, err)
		}
		return f, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := p.archive(ctx, zw, rel); err != nil {
		zw.Close()
		return nil, p.opError("getFileContent", np, err)
	}
	if err := zw.Close(); err != nil {
		return nil, p.opError("getFileContent", np, err)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// archive writes rel and everything below it to zw. Entry names are relative
// to the parent of rel. Callers hold mu.
func (p *Provider) archive(ctx context.Context, zw *zip.Writer, rel string) error {
	base := path.Dir(rel)

	return afero.Walk(p.fs, rel, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if isHidden(name) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entryName := strings.TrimPrefix(strings.TrimPrefix(name, base), "/")
		if entryName == "" {
			return nil
		}
		if info.IsDir() {
			_, err := zw.CreateHeader(&zip.FileHeader{
				Name:     entryName + "/",
				Modified: info.ModTime(),
			})
			return err
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entryName,
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		})
		if err != nil {
			return err
		}
		f, err := p.fs.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}
