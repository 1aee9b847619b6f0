package genfile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/genfile"
	_ "github.com/gobeaver/genfile/provider/afs"
)

func testConfig(t *testing.T) *genfile.Config {
	t.Helper()
	return &genfile.Config{
		Providers:           "docs:local:" + t.TempDir() + ",scratch:memory,archive:memory",
		ReadOnlyProviders:   "archive",
		Actor:               "alice",
		TreeCacheTTLSeconds: 60,
		LogLevel:            "debug",
		LogFormat:           "json",
		LogOutput:           filepath.Join(t.TempDir(), "genfile.log"),
		DecorateContentType: true,
		ChecksumAlgorithm:   "sha256",
		ChecksumMaxSize:     1024,
	}
}

func TestNew(t *testing.T) {
	router, err := genfile.New(testConfig(t))
	require.NoError(t, err)

	var ids []string
	for _, p := range router.Providers() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"docs", "scratch", "archive"}, ids)

	archive, ok := router.FindOwner(genfile.MustParsePath("/archive/x"))
	require.True(t, ok)
	_, isReadOnly := archive.(*genfile.ReadOnlyProvider)
	assert.True(t, isReadOnly)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers = "docs:unknown-kind"
	_, err := genfile.New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.ChecksumAlgorithm = "rot13"
	_, err = genfile.New(cfg)
	assert.ErrorIs(t, err, genfile.ErrUnsupportedOperation)

	cfg = testConfig(t)
	cfg.ReadOnlyProviders = "missing"
	_, err = genfile.New(cfg)
	assert.Error(t, err)
}

func TestNewWithMetricsTwice(t *testing.T) {
	for i := 0; i < 2; i++ {
		cfg := testConfig(t)
		cfg.MetricsEnabled = true

		router, err := genfile.New(cfg)
		require.NoError(t, err, "router %d", i)
		require.NoError(t, router.CreateFolder(context.Background(), genfile.MustParsePath("/scratch/x")))
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("BEAVER_GENFILE_PROVIDERS", "mem:memory")
	t.Setenv("BEAVER_GENFILE_LOG_OUTPUT", filepath.Join(t.TempDir(), "out.log"))

	router, err := genfile.NewFromEnv()
	require.NoError(t, err)
	require.Len(t, router.Providers(), 1)
	assert.Equal(t, "mem", router.Providers()[0].ID())
}

func TestConfiguredRouterEndToEnd(t *testing.T) {
	router, err := genfile.New(testConfig(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, router.CreateFolder(ctx, genfile.MustParsePath("/scratch/reports")))
	require.NoError(t, router.SetFileMetadata(ctx, genfile.MustParsePath("/scratch/reports"), genfile.Metadata{"tags": "Q1, Finance"}))

	folder, err := router.GetFile(ctx, genfile.MustParsePath("/scratch/reports"), genfile.GetFileOptions{IncludeMetadata: true})
	require.NoError(t, err)
	assert.Equal(t, "alice", folder.Owner)
	assert.Equal(t, "q1,finance", folder.Metadata["tags"])
	assert.Equal(t, "q1,finance", folder.Attributes[genfile.AttrTags])

	tree, err := router.GetTreeFromRoot(ctx, genfile.GetTreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, genfile.CombinedProviderID, tree.File.Provider)
	require.Len(t, tree.Children, 3)

	err = router.DeleteFiles(ctx, []genfile.Path{
		genfile.MustParsePath("/scratch/reports"),
		genfile.MustParsePath("/archive/anything"),
		genfile.MustParsePath("/nowhere/x"),
	})
	var batchErr *genfile.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, []genfile.Path{
		genfile.MustParsePath("/archive/anything"),
		genfile.MustParsePath("/nowhere/x"),
	}, batchErr.FailedPaths())

	deleted, err := router.GetDeletedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "reports", deleted[0].Name)
	assert.Equal(t, "alice", deleted[0].DeletedBy)

	require.NoError(t, router.RestoreFiles(ctx, []genfile.Path{deleted[0].Path}))
	ok, err := router.DoesFolderExist(ctx, genfile.MustParsePath("/scratch/reports"))
	require.NoError(t, err)
	assert.True(t, ok)

	err = router.MoveFile(ctx, genfile.MustParsePath("/scratch/reports"), genfile.MustParsePath("/docs"))
	assert.True(t, genfile.IsUnsupported(err))

	router.ClearTreeCache(ctx)
}
