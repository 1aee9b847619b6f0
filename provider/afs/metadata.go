package afs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/gobeaver/genfile"
)

// Metadata is stored as one YAML sidecar per entry. Every entry owns a node
// folder below metaDir; its own sidecar is "self.yaml" in that folder and the
// nodes of its children live under "c/", so entry names never collide with
// sidecar names:
//
//	/docs/a.txt      -> /.genfile/meta/c/docs/c/a.txt/self.yaml
//	/docs            -> /.genfile/meta/c/docs/self.yaml

const sidecarName = "self.yaml"

// metaNode returns the node folder holding the metadata of rel and of
// everything below it.
func metaNode(rel string) string {
	trimmed := strings.Trim(rel, "/")
	if trimmed == "" {
		return metaDir
	}
	var b strings.Builder
	b.WriteString(metaDir)
	for _, seg := range strings.Split(trimmed, "/") {
		b.WriteString("/c/")
		b.WriteString(seg)
	}
	return b.String()
}

func sidecarPath(rel string) string {
	return metaNode(rel) + "/" + sidecarName
}

// GetFileMetadata implements genfile.Provider. Entries without metadata
// return an empty map.
func (p *Provider) GetFileMetadata(ctx context.Context, np genfile.Path) (genfile.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := p.visible("getFileMetadata", np)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, err := p.fs.Stat(rel); err != nil {
		return nil, p.opError("getFileMetadata", np, err)
	}
	md, err := p.readMetadata(rel)
	if err != nil {
		return nil, p.opError("getFileMetadata", np, err)
	}
	return md, nil
}

// SetFileMetadata implements genfile.Provider. An empty map removes the
// sidecar.
func (p *Provider) SetFileMetadata(ctx context.Context, np genfile.Path, md genfile.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := p.visible("setFileMetadata", np)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	if _, err := p.fs.Stat(rel); err != nil {
		return p.opError("setFileMetadata", np, err)
	}
	if err := p.writeMetadata(rel, md); err != nil {
		return p.opError("setFileMetadata", np, err)
	}
	return nil
}

// readMetadata loads the sidecar of rel. Callers hold mu.
func (p *Provider) readMetadata(rel string) (genfile.Metadata, error) {
	data, err := afero.ReadFile(p.fs, sidecarPath(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return genfile.Metadata{}, nil
	}
	if err != nil {
		return nil, err
	}

	md := genfile.Metadata{}
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode metadata of %s: %w", rel, err)
	}
	return md, nil
}

// writeMetadata replaces the sidecar of rel. Callers hold mu.
func (p *Provider) writeMetadata(rel string, md genfile.Metadata) error {
	sidecar := sidecarPath(rel)
	if len(md) == 0 {
		if err := p.fs.Remove(sidecar); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := yaml.Marshal(map[string]string(md))
	if err != nil {
		return fmt.Errorf("encode metadata of %s: %w", rel, err)
	}
	if err := p.fs.MkdirAll(path.Dir(sidecar), 0755); err != nil {
		return err
	}
	return afero.WriteFile(p.fs, sidecar, data, 0644)
}

// moveMetadata moves the sidecars of rel and its descendants to dst.
// Callers hold mu.
func (p *Provider) moveMetadata(rel, dst string) error {
	return p.transferMetadata(rel, dst, true)
}

// copyMetadata copies the sidecars of rel and its descendants to dst.
// Callers hold mu.
func (p *Provider) copyMetadata(rel, dst string) error {
	return p.transferMetadata(rel, dst, false)
}

func (p *Provider) transferMetadata(rel, dst string, move bool) error {
	src, target := metaNode(rel), metaNode(dst)
	exists, err := afero.Exists(p.fs, src)
	if err != nil || !exists {
		return err
	}
	if err := p.fs.MkdirAll(path.Dir(target), 0755); err != nil {
		return err
	}
	if move {
		return p.move(src, target)
	}
	return p.copy(src, target)
}

// removeMetadata drops the sidecars of rel and its descendants.
// Callers hold mu.
func (p *Provider) removeMetadata(rel string) error {
	return p.fs.RemoveAll(metaNode(rel))
}
