package afs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gobeaver/genfile"
)

// trashRecord describes one soft-deleted entry. It is stored next to the
// entry as "<trashDir>/<id>.yaml".
type trashRecord struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name"`
	OriginalPath string           `yaml:"originalPath"`
	Type         genfile.FileType `yaml:"type"`
	Size         int64            `yaml:"size"`
	Created      time.Time        `yaml:"created"`
	DeletedAt    time.Time        `yaml:"deletedAt"`
	DeletedBy    string           `yaml:"deletedBy"`
}

func trashEntryPath(id string) string {
	return trashDir + "/" + id
}

func trashRecordPath(id string) string {
	return trashDir + "/" + id + ".yaml"
}

// trashID extracts the trash id when rel is a trash entry.
func trashID(rel string) (string, bool) {
	id, ok := strings.CutPrefix(rel, trashDir+"/")
	if !ok || id == "" || strings.Contains(id, "/") || strings.HasSuffix(id, ".yaml") {
		return "", false
	}
	return id, true
}

// DeleteFile implements genfile.Provider. The entry and its metadata move to
// the trash, where GetDeletedFiles lists them.
func (p *Provider) DeleteFile(ctx context.Context, np genfile.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := p.visible("deleteFile", np)
	if err != nil {
		return err
	}
	if rel == "/" {
		return p.opError("deleteFile", np, errMountRoot)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	info, err := p.fs.Stat(rel)
	if err != nil {
		return p.opError("deleteFile", np, err)
	}

	rec := trashRecord{
		ID:           uuid.NewString(),
		Name:         path.Base(rel),
		OriginalPath: rel,
		Type:         genfile.FileTypeFile,
		Created:      info.ModTime(),
		DeletedAt:    p.now().UTC(),
		DeletedBy:    p.actor,
	}
	if info.IsDir() {
		rec.Type = genfile.FileTypeFolder
	} else {
		rec.Size = info.Size()
	}

	entry := trashEntryPath(rec.ID)
	if err := p.fs.MkdirAll(trashDir, 0755); err != nil {
		return p.opError("deleteFile", np, err)
	}
	if err := p.move(rel, entry); err != nil {
		return p.opError("deleteFile", np, err)
	}
	if err := p.moveMetadata(rel, entry); err != nil {
		return p.opError("deleteFile", np, err)
	}
	if err := p.writeRecord(rec); err != nil {
		return p.opError("deleteFile", np, err)
	}

	p.logger.Debug("moved to trash",
		zap.Stringer("path", np),
		zap.String("trash_id", rec.ID))
	return nil
}

// RestoreFile implements genfile.Provider. np is the Path of an entry
// returned by GetDeletedFiles.
func (p *Provider) RestoreFile(ctx context.Context, np genfile.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := p.resolve("restoreFile", np)
	if err != nil {
		return err
	}
	id, ok := trashID(rel)
	if !ok {
		return p.opError("restoreFile", np, fmt.Errorf("%w: not a deleted entry", genfile.ErrNotExist))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Clear()

	rec, err := p.readRecord(id)
	if err != nil {
		return p.opError("restoreFile", np, err)
	}
	if err := p.ensureFree(rec.OriginalPath); err != nil {
		return p.opError("restoreFile", np, err)
	}
	if err := p.fs.MkdirAll(path.Dir(rec.OriginalPath), 0755); err != nil {
		return p.opError("restoreFile", np, err)
	}

	entry := trashEntryPath(id)
	if err := p.move(entry, rec.OriginalPath); err != nil {
		return p.opError("restoreFile", np, err)
	}
	if err := p.moveMetadata(entry, rec.OriginalPath); err != nil {
		return p.opError("restoreFile", np, err)
	}
	if err := p.fs.Remove(trashRecordPath(id)); err != nil {
		return p.opError("restoreFile", np, err)
	}

	p.logger.Debug("restored",
		zap.Stringer("path", p.toNamespace(rec.OriginalPath)),
		zap.String("trash_id", id))
	return nil
}

// GetDeletedFiles implements genfile.Provider, newest deletion first.
func (p *Provider) GetDeletedFiles(ctx context.Context) ([]*genfile.GenericFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := afero.ReadDir(p.fs, trashDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*genfile.GenericFile{}, nil
	}
	if err != nil {
		return nil, p.opError("getDeletedFiles", p.mount, err)
	}

	files := make([]*genfile.GenericFile, 0, len(entries)/2)
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".yaml")
		if !ok || e.IsDir() {
			continue
		}
		rec, err := p.readRecord(id)
		if err != nil {
			return nil, p.opError("getDeletedFiles", p.mount, err)
		}
		file, err := p.deletedFile(rec)
		if err != nil {
			return nil, p.opError("getDeletedFiles", p.mount, err)
		}
		files = append(files, file)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Deleted.After(files[j].Deleted)
	})
	return files, nil
}

// deletedFile builds the GenericFile of a trash entry. Callers hold mu.
func (p *Provider) deletedFile(rec *trashRecord) (*genfile.GenericFile, error) {
	entry := trashEntryPath(rec.ID)
	original := p.toNamespace(rec.OriginalPath)

	md, err := p.readMetadata(entry)
	if err != nil {
		return nil, err
	}

	var location []genfile.Path
	for _, a := range original.Ancestors() {
		if a.HasPrefix(p.mount) {
			location = append(location, a)
		}
	}
	location = append(location, original)

	file := &genfile.GenericFile{
		Provider:         p.id,
		Name:             rec.Name,
		Path:             p.toNamespace(entry),
		ParentPath:       original.Parent(),
		Type:             rec.Type,
		Created:          rec.Created,
		Modified:         rec.DeletedAt,
		Deleted:          rec.DeletedAt,
		CreatedBy:        p.actor,
		DeletedBy:        rec.DeletedBy,
		Owner:            p.actor,
		Size:             rec.Size,
		CanDelete:        true,
		OriginalLocation: location,
		Metadata:         md,
	}
	if rec.Type == genfile.FileTypeFolder {
		file.HasChildren = p.hasChildren(entry)
	}
	return file, nil
}

// purge permanently removes a trash entry. Purging an unknown id fails with
// ErrNotExist.
func (p *Provider) purge(np genfile.Path, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.readRecord(id); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	entry := trashEntryPath(id)
	if err := p.fs.RemoveAll(entry); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	if err := p.removeMetadata(entry); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	if err := p.fs.Remove(trashRecordPath(id)); err != nil {
		return p.opError("deleteFilePermanently", np, err)
	}
	p.logger.Debug("purged from trash", zap.String("trash_id", id))
	return nil
}

func (p *Provider) readRecord(id string) (*trashRecord, error) {
	data, err := afero.ReadFile(p.fs, trashRecordPath(id))
	if err != nil {
		return nil, err
	}
	rec := &trashRecord{}
	if err := yaml.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode trash record %s: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}

func (p *Provider) writeRecord(rec trashRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trash record %s: %w", rec.ID, err)
	}
	return afero.WriteFile(p.fs, trashRecordPath(rec.ID), data, 0644)
}
