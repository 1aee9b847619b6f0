// Package genfile presents several file storage providers as one
// hierarchical namespace of "generic files".
//
// Each [Provider] serves a subtree of the namespace, normally "/<id>". The
// [Router] dispatches single-path operations to the first registered
// provider that owns the path, fans whole-namespace queries out to every
// provider and merges the results, and runs batch operations path by path
// so one failure does not stop the rest.
//
// Every file and tree the router returns passes through a decoration
// [Pipeline]. Decorators enrich results (content types, normalized tags,
// checksums) but never change identity: Path, Provider and Type are
// restored if a decorator touches them, and a failing decorator is logged
// and contained rather than failing the request.
//
// # Providers
//
// Providers register a kind with [RegisterProvider] from their package's
// init. The afero-backed package registers "local" and "memory":
//
//	import _ "github.com/gobeaver/genfile/provider/afs"
//
// Any provider can be made read-only with [NewReadOnlyProvider].
//
// # Basic Usage
//
//	docs, _ := afs.NewLocal("docs", "/srv/docs")
//	scratch, _ := afs.NewMemory("scratch")
//
//	router, err := genfile.NewRouter([]genfile.Provider{docs, scratch},
//	    genfile.WithDecorator(genfile.Chain(
//	        genfile.NewContentTypeDecorator(),
//	        genfile.NewTagsDecorator(),
//	    )),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//
//	// Whole namespace under a synthetic root
//	tree, err := router.GetTreeFromRoot(ctx, genfile.GetTreeOptions{})
//
//	// Single path, routed to its owner
//	err = router.CreateFolder(ctx, genfile.MustParsePath("/docs/reports"))
//
//	// Batch, failures collected per path
//	err = router.DeleteFiles(ctx, paths)
//	var batchErr *genfile.BatchError
//	if errors.As(err, &batchErr) {
//	    log.Println(batchErr.FailedPaths())
//	}
//
// # Configuration
//
// [New] builds a router from [Config], which is loaded from BEAVER_GENFILE_*
// environment variables by [GetConfig] and [NewFromEnv]:
//
//	BEAVER_GENFILE_PROVIDERS="docs:local:/srv/docs,scratch:memory"
//	BEAVER_GENFILE_READ_ONLY_PROVIDERS="docs"
//	BEAVER_GENFILE_CHECKSUM_ALGORITHM="sha256"
//
// # Errors
//
// Operations return *[OperationError] wrapping one of the sentinel errors,
// so callers can use errors.Is:
//
//	if errors.Is(err, genfile.ErrNotFound) {
//	    // no provider owns the path
//	}
//
// Batch operations return a *[BatchError] listing the failed paths.
package genfile
