package afs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/genfile"
)

func newTestProvider(t *testing.T, files map[string]string) *Provider {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0644))
	}
	p, err := New("docs", fsys, WithActor("alice"))
	require.NoError(t, err)
	return p
}

func np(s string) genfile.Path {
	return genfile.MustParsePath(s)
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestNewRejectsBadIDs(t *testing.T) {
	for _, id := range []string{"", "a/b", ".", ".."} {
		_, err := New(id, afero.NewMemMapFs())
		assert.ErrorIs(t, err, genfile.ErrInvalidProviderConfiguration, "id %q", id)
	}

	_, err := New("docs", nil)
	assert.ErrorIs(t, err, genfile.ErrInvalidProviderConfiguration)
}

func TestOwns(t *testing.T) {
	p := newTestProvider(t, nil)

	assert.True(t, p.Owns(np("/docs")))
	assert.True(t, p.Owns(np("/docs/a/b.txt")))
	assert.False(t, p.Owns(np("/docsx")))
	assert.False(t, p.Owns(np("/")))
	assert.False(t, p.Owns(genfile.Path{}))
}

func TestGetFile(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/reports/q1.txt": "hello"})
	ctx := context.Background()

	file, err := p.GetFile(ctx, np("/docs/reports/q1.txt"), genfile.GetFileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "docs", file.Provider)
	assert.Equal(t, "q1.txt", file.Name)
	assert.Equal(t, np("/docs/reports"), file.ParentPath)
	assert.Equal(t, genfile.FileTypeFile, file.Type)
	assert.Equal(t, int64(5), file.Size)
	assert.Equal(t, "alice", file.Owner)
	assert.True(t, file.CanEdit)

	folder, err := p.GetFile(ctx, np("/docs/reports"), genfile.GetFileOptions{})
	require.NoError(t, err)
	assert.True(t, folder.IsFolder())
	assert.True(t, folder.HasChildren)
	assert.True(t, folder.CanAddChildren)

	root, err := p.GetFile(ctx, np("/docs"), genfile.GetFileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "docs", root.Name)
	assert.False(t, root.CanDelete)

	_, err = p.GetFile(ctx, np("/docs/missing.txt"), genfile.GetFileOptions{})
	assert.ErrorIs(t, err, genfile.ErrNotExist)

	_, err = p.GetFile(ctx, np("/docs/.genfile"), genfile.GetFileOptions{})
	assert.ErrorIs(t, err, genfile.ErrNotExist)

	_, err = p.GetFile(ctx, np("/other/a.txt"), genfile.GetFileOptions{})
	var opErr *genfile.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "docs", opErr.Provider)
	assert.ErrorIs(t, err, genfile.ErrNotFound)
}

func TestGetTree(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"/b/two.txt": "2",
		"/a.txt":     "1",
		"/b/c/x.txt": "x",
	})
	ctx := context.Background()
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/a.txt"), genfile.Metadata{"k": "v"}))

	tree, err := p.GetTree(ctx, genfile.GetTreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, np("/docs"), tree.File.Path)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "a.txt", tree.Children[0].File.Name)
	assert.Equal(t, "b", tree.Children[1].File.Name)
	require.Len(t, tree.Children[1].Children, 2)
	assert.Equal(t, np("/docs/b/c/x.txt"), tree.Children[1].Children[0].Children[0].File.Path)
	assert.Nil(t, tree.Children[0].File.Metadata)

	withMeta, err := p.GetTree(ctx, genfile.GetTreeOptions{IncludeMetadata: true})
	require.NoError(t, err)
	assert.Equal(t, genfile.Metadata{"k": "v"}, withMeta.Children[0].File.Metadata)

	sub, err := p.GetTree(ctx, genfile.GetTreeOptions{BasePath: np("/docs/b/c")})
	require.NoError(t, err)
	assert.Equal(t, "c", sub.File.Name)
	require.Len(t, sub.Children, 1)
}

func TestGetTreeIsCachedUntilWrite(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "1"})
	ctx := context.Background()

	first, err := p.GetTree(ctx, genfile.GetTreeOptions{})
	require.NoError(t, err)
	first.Children = nil // callers get copies

	second, err := p.GetTree(ctx, genfile.GetTreeOptions{})
	require.NoError(t, err)
	assert.Len(t, second.Children, 1)
	assert.Equal(t, int64(1), p.CacheStats().Hits)

	require.NoError(t, p.CreateFolder(ctx, np("/docs/new")))
	third, err := p.GetTree(ctx, genfile.GetTreeOptions{})
	require.NoError(t, err)
	assert.Len(t, third.Children, 2)

	require.NoError(t, p.ClearTreeCache(ctx))
	assert.Equal(t, int64(0), p.CacheStats().Size)
}

func TestGetRootTrees(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a/b/c.txt": "c", "/z.txt": "z"})

	trees, err := p.GetRootTrees(context.Background(), genfile.GetTreeOptions{})
	require.NoError(t, err)
	require.Len(t, trees, 1)

	root := trees[0]
	assert.Equal(t, np("/docs"), root.File.Path)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "a", root.Children[0].File.Name)
	assert.True(t, root.Children[0].File.HasChildren)
	assert.Empty(t, root.Children[0].Children)
}

func TestGetTreeHonorsCancellation(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetTree(ctx, genfile.GetTreeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFolderChecks(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a/b.txt": "b"})
	ctx := context.Background()

	ok, err := p.DoesFolderExist(ctx, np("/docs/a"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.DoesFolderExist(ctx, np("/docs/a/b.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.DoesFolderExist(ctx, np("/docs/.genfile"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.HasAccess(ctx, np("/docs/a/b.txt"), genfile.PermissionRead, genfile.PermissionWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.HasAccess(ctx, np("/docs/nope"), genfile.PermissionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateFolder(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()

	require.NoError(t, p.CreateFolder(ctx, np("/docs/x/y")))
	ok, err := p.DoesFolderExist(ctx, np("/docs/x/y"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, p.CreateFolder(ctx, np("/docs/x")), genfile.ErrExist)
}

func TestMetadata(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "1"})
	ctx := context.Background()

	md, err := p.GetFileMetadata(ctx, np("/docs/a.txt"))
	require.NoError(t, err)
	assert.Empty(t, md)

	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/a.txt"), genfile.Metadata{"tags": "red,blue"}))
	md, err = p.GetFileMetadata(ctx, np("/docs/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, genfile.Metadata{"tags": "red,blue"}, md)

	file, err := p.GetFile(ctx, np("/docs/a.txt"), genfile.GetFileOptions{IncludeMetadata: true})
	require.NoError(t, err)
	assert.Equal(t, "red,blue", file.Metadata["tags"])

	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/a.txt"), nil))
	md, err = p.GetFileMetadata(ctx, np("/docs/a.txt"))
	require.NoError(t, err)
	assert.Empty(t, md)

	err = p.SetFileMetadata(ctx, np("/docs/missing"), genfile.Metadata{"a": "b"})
	assert.ErrorIs(t, err, genfile.ErrNotExist)
}

func TestMetadataOfLookalikeSiblings(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/m/a.txt": "1"})
	ctx := context.Background()

	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/m/a.txt"), genfile.Metadata{"k": "v"}))
	require.NoError(t, p.CreateFolder(ctx, np("/docs/m/a.txt.yaml")))
	require.NoError(t, p.CreateFolder(ctx, np("/docs/m/a.txt.yaml/inner")))
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/m/a.txt.yaml"), genfile.Metadata{"folder": "1"}))
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/m/a.txt.yaml/inner"), genfile.Metadata{"inner": "1"}))

	md, err := p.GetFileMetadata(ctx, np("/docs/m/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, genfile.Metadata{"k": "v"}, md)

	require.NoError(t, p.RenameFile(ctx, np("/docs/m/a.txt.yaml"), "other"))
	md, err = p.GetFileMetadata(ctx, np("/docs/m/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, genfile.Metadata{"k": "v"}, md)
	md, err = p.GetFileMetadata(ctx, np("/docs/m/other/inner"))
	require.NoError(t, err)
	assert.Equal(t, genfile.Metadata{"inner": "1"}, md)

	require.NoError(t, p.DeleteFilePermanently(ctx, np("/docs/m/other")))
	md, err = p.GetFileMetadata(ctx, np("/docs/m/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, genfile.Metadata{"k": "v"}, md)
}

func TestGetTreeNotStaleAfterConcurrentWrites(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, _ = p.GetTree(ctx, genfile.GetTreeOptions{})
				_, _ = p.GetRootTrees(ctx, genfile.GetTreeOptions{})
			}
		}()
		require.NoError(t, p.CreateFolder(ctx, np(fmt.Sprintf("/docs/dir%02d", i))))
		wg.Wait()

		tree, err := p.GetTree(ctx, genfile.GetTreeOptions{})
		require.NoError(t, err)
		require.Len(t, tree.Children, i+1)

		roots, err := p.GetRootTrees(ctx, genfile.GetTreeOptions{})
		require.NoError(t, err)
		require.Len(t, roots[0].Children, i+1)
	}
}

func TestRenameFile(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "1", "/b.txt": "2"})
	ctx := context.Background()
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/a.txt"), genfile.Metadata{"k": "v"}))

	require.NoError(t, p.RenameFile(ctx, np("/docs/a.txt"), "c.txt"))

	_, err := p.GetFile(ctx, np("/docs/a.txt"), genfile.GetFileOptions{})
	assert.ErrorIs(t, err, genfile.ErrNotExist)
	md, err := p.GetFileMetadata(ctx, np("/docs/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v", md["k"])

	assert.ErrorIs(t, p.RenameFile(ctx, np("/docs/c.txt"), "b.txt"), genfile.ErrExist)
	assert.ErrorIs(t, p.RenameFile(ctx, np("/docs/c.txt"), "x/y"), genfile.ErrInvalidName)
	assert.ErrorIs(t, p.RenameFile(ctx, np("/docs/c.txt"), ".genfile"), genfile.ErrInvalidName)
	assert.ErrorIs(t, p.RenameFile(ctx, np("/docs"), "other"), genfile.ErrPermission)
}

func TestCopyFile(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/src/a.txt": "hello", "/src/sub/b.txt": "b"})
	ctx := context.Background()
	require.NoError(t, p.CreateFolder(ctx, np("/docs/dst")))
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/src/a.txt"), genfile.Metadata{"k": "v"}))

	require.NoError(t, p.CopyFile(ctx, np("/docs/src/a.txt"), np("/docs/dst")))
	rc, err := p.GetFileContent(ctx, np("/docs/dst/a.txt"), false)
	require.NoError(t, err)
	assert.Equal(t, "hello", readAll(t, rc))
	md, err := p.GetFileMetadata(ctx, np("/docs/dst/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v", md["k"])

	// source untouched
	_, err = p.GetFile(ctx, np("/docs/src/a.txt"), genfile.GetFileOptions{})
	require.NoError(t, err)

	require.NoError(t, p.CopyFile(ctx, np("/docs/src"), np("/docs/dst")))
	_, err = p.GetFile(ctx, np("/docs/dst/src/sub/b.txt"), genfile.GetFileOptions{})
	require.NoError(t, err)

	assert.ErrorIs(t, p.CopyFile(ctx, np("/docs/src/a.txt"), np("/docs/dst")), genfile.ErrExist)
	assert.ErrorIs(t, p.CopyFile(ctx, np("/docs/src"), np("/docs/src/sub")), genfile.ErrInvalidPath)
	assert.ErrorIs(t, p.CopyFile(ctx, np("/docs/src/sub"), np("/docs/src/a.txt")), genfile.ErrNotDir)
}

func TestMoveFile(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "hello", "/folder/x.txt": "x"})
	ctx := context.Background()
	require.NoError(t, p.CreateFolder(ctx, np("/docs/dst")))

	require.NoError(t, p.MoveFile(ctx, np("/docs/a.txt"), np("/docs/dst")))
	_, err := p.GetFile(ctx, np("/docs/a.txt"), genfile.GetFileOptions{})
	assert.ErrorIs(t, err, genfile.ErrNotExist)
	_, err = p.GetFile(ctx, np("/docs/dst/a.txt"), genfile.GetFileOptions{})
	require.NoError(t, err)

	require.NoError(t, p.MoveFile(ctx, np("/docs/folder"), np("/docs/dst")))
	rc, err := p.GetFileContent(ctx, np("/docs/dst/folder/x.txt"), false)
	require.NoError(t, err)
	assert.Equal(t, "x", readAll(t, rc))
	ok, err := p.DoesFolderExist(ctx, np("/docs/folder"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/reports/q1.txt": "hello"})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/reports/q1.txt"), genfile.Metadata{"k": "v"}))

	require.NoError(t, p.DeleteFile(ctx, np("/docs/reports/q1.txt")))

	_, err := p.GetFile(ctx, np("/docs/reports/q1.txt"), genfile.GetFileOptions{})
	assert.ErrorIs(t, err, genfile.ErrNotExist)

	deleted, err := p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	d := deleted[0]
	assert.Equal(t, "q1.txt", d.Name)
	assert.Equal(t, "docs", d.Provider)
	assert.Equal(t, now, d.Deleted)
	assert.Equal(t, "alice", d.DeletedBy)
	assert.Equal(t, int64(5), d.Size)
	assert.Equal(t, "v", d.Metadata["k"])
	assert.Equal(t, []genfile.Path{np("/docs"), np("/docs/reports"), np("/docs/reports/q1.txt")}, d.OriginalLocation)
	assert.True(t, p.Owns(d.Path))

	// trash stays out of listings
	tree, err := p.GetTree(ctx, genfile.GetTreeOptions{})
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "reports", tree.Children[0].File.Name)

	require.NoError(t, p.RestoreFile(ctx, d.Path))
	rc, err := p.GetFileContent(ctx, np("/docs/reports/q1.txt"), false)
	require.NoError(t, err)
	assert.Equal(t, "hello", readAll(t, rc))
	md, err := p.GetFileMetadata(ctx, np("/docs/reports/q1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v", md["k"])

	deleted, err = p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestRestoreIntoOccupiedLocation(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "old"})
	ctx := context.Background()

	require.NoError(t, p.DeleteFile(ctx, np("/docs/a.txt")))
	require.NoError(t, afero.WriteFile(p.fs, "/a.txt", []byte("new"), 0644))

	deleted, err := p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.ErrorIs(t, p.RestoreFile(ctx, deleted[0].Path), genfile.ErrExist)

	assert.ErrorIs(t, p.RestoreFile(ctx, np("/docs/a.txt")), genfile.ErrNotExist)
}

func TestRestoreRecreatesParents(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a/b/c.txt": "c"})
	ctx := context.Background()

	require.NoError(t, p.DeleteFile(ctx, np("/docs/a/b/c.txt")))
	require.NoError(t, p.DeleteFilePermanently(ctx, np("/docs/a")))

	deleted, err := p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.NoError(t, p.RestoreFile(ctx, deleted[0].Path))

	_, err = p.GetFile(ctx, np("/docs/a/b/c.txt"), genfile.GetFileOptions{})
	require.NoError(t, err)
}

func TestDeleteFilePermanently(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/a.txt": "1", "/b.txt": "2"})
	ctx := context.Background()
	require.NoError(t, p.SetFileMetadata(ctx, np("/docs/a.txt"), genfile.Metadata{"k": "v"}))

	require.NoError(t, p.DeleteFilePermanently(ctx, np("/docs/a.txt")))
	_, err := p.GetFile(ctx, np("/docs/a.txt"), genfile.GetFileOptions{})
	assert.ErrorIs(t, err, genfile.ErrNotExist)
	exists, err := afero.Exists(p.fs, sidecarPath("/a.txt"))
	require.NoError(t, err)
	assert.False(t, exists)

	// purging a trash entry
	require.NoError(t, p.DeleteFile(ctx, np("/docs/b.txt")))
	deleted, err := p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.NoError(t, p.DeleteFilePermanently(ctx, deleted[0].Path))

	deleted, err = p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	assert.ErrorIs(t, p.DeleteFilePermanently(ctx, np("/docs")), genfile.ErrPermission)
	assert.ErrorIs(t, p.DeleteFile(ctx, np("/docs")), genfile.ErrPermission)
	assert.ErrorIs(t, p.DeleteFile(ctx, np("/docs/missing")), genfile.ErrNotExist)
}

func TestGetFileContent(t *testing.T) {
	p := newTestProvider(t, map[string]string{"/dir/a.txt": "aaa", "/dir/sub/b.txt": "bbb"})
	ctx := context.Background()

	rc, err := p.GetFileContent(ctx, np("/docs/dir/a.txt"), false)
	require.NoError(t, err)
	assert.Equal(t, "aaa", readAll(t, rc))

	_, err = p.GetFileContent(ctx, np("/docs/dir"), false)
	assert.ErrorIs(t, err, genfile.ErrIsDir)

	rc, err = p.GetFileContent(ctx, np("/docs/dir"), true)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	contents := map[string]string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		r, err := f.Open()
		require.NoError(t, err)
		contents[f.Name] = readAll(t, r)
	}
	assert.Equal(t, map[string]string{"dir/a.txt": "aaa", "dir/sub/b.txt": "bbb"}, contents)
}

func TestLocalProvider(t *testing.T) {
	root := t.TempDir()
	p, err := NewLocal("disk", root, WithActor("bob"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.CreateFolder(ctx, np("/disk/a")))
	require.NoError(t, afero.WriteFile(p.fs, "/a/f.txt", []byte("data"), 0644))
	require.NoError(t, p.CreateFolder(ctx, np("/disk/b")))

	require.NoError(t, p.MoveFile(ctx, np("/disk/a"), np("/disk/b")))
	file, err := p.GetFile(ctx, np("/disk/b/a/f.txt"), genfile.GetFileOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), file.Size)
	assert.Equal(t, "bob", file.Owner)

	require.NoError(t, p.DeleteFile(ctx, np("/disk/b")))
	deleted, err := p.GetDeletedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.True(t, deleted[0].IsFolder())
	assert.True(t, deleted[0].HasChildren)
	require.NoError(t, p.RestoreFile(ctx, deleted[0].Path))

	_, err = NewLocal("disk", "")
	assert.ErrorIs(t, err, genfile.ErrInvalidProviderConfiguration)
}

func TestRegisteredKinds(t *testing.T) {
	kinds := genfile.RegisteredKinds()
	assert.Contains(t, kinds, KindLocal)
	assert.Contains(t, kinds, KindMemory)

	cfg := &genfile.Config{Actor: "carol", TreeCacheTTLSeconds: 60}
	provider, err := genfile.CreateProvider(genfile.ProviderSpec{ID: "mem", Kind: KindMemory, ReadOnly: true}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "mem", provider.ID())

	err = provider.CreateFolder(context.Background(), np("/mem/x"))
	assert.ErrorIs(t, err, genfile.ErrReadOnly)
}
