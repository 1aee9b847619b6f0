package genfile_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gobeaver/genfile"
	"github.com/gobeaver/genfile/provider/afs"
)

func ExampleRouter() {
	ctx := context.Background()

	// Each provider serves "/<id>"
	docs, _ := afs.NewMemory("docs")
	media, _ := afs.NewMemory("media")

	router, _ := genfile.NewRouter([]genfile.Provider{docs, media})

	_ = router.CreateFolder(ctx, genfile.MustParsePath("/docs/reports"))
	_ = router.CreateFolder(ctx, genfile.MustParsePath("/media/photos"))

	tree, _ := router.GetTreeFromRoot(ctx, genfile.GetTreeOptions{})
	printTree(tree, 0)
	// Output:
	// root (combined)
	//   docs (docs)
	//     reports (docs)
	//   media (media)
	//     photos (media)
}

func ExampleRouter_DeleteFiles() {
	ctx := context.Background()

	docs, _ := afs.NewMemory("docs")
	router, _ := genfile.NewRouter([]genfile.Provider{docs})
	_ = router.CreateFolder(ctx, genfile.MustParsePath("/docs/old"))

	// One path is unowned; the other still gets deleted
	err := router.DeleteFiles(ctx, []genfile.Path{
		genfile.MustParsePath("/docs/old"),
		genfile.MustParsePath("/elsewhere/file.txt"),
	})

	var batchErr *genfile.BatchError
	if errors.As(err, &batchErr) {
		fmt.Println("failed:", batchErr.FailedPaths())
	}

	deleted, _ := router.GetDeletedFiles(ctx)
	for _, f := range deleted {
		fmt.Println("in trash:", f.Name, "from", f.OriginalLocation[len(f.OriginalLocation)-1])
		_ = router.RestoreFile(ctx, f.Path)
	}

	exists, _ := router.DoesFolderExist(ctx, genfile.MustParsePath("/docs/old"))
	fmt.Println("restored:", exists)
	// Output:
	// failed: [/elsewhere/file.txt]
	// in trash: old from /docs/old
	// restored: true
}

func ExampleTagsDecorator() {
	ctx := context.Background()

	docs, _ := afs.NewMemory("docs")
	router, _ := genfile.NewRouter([]genfile.Provider{docs},
		genfile.WithDecorator(genfile.Chain(genfile.NewContentTypeDecorator(), genfile.NewTagsDecorator())))

	p := genfile.MustParsePath("/docs/invoices")
	_ = router.CreateFolder(ctx, p)
	_ = router.SetFileMetadata(ctx, p, genfile.Metadata{"tags": "Finance, 2024, finance"})

	md, _ := router.GetFileMetadata(ctx, p)
	fmt.Println(md["tags"])
	// Output:
	// finance,2024
}

func ExampleNewReadOnlyProvider() {
	ctx := context.Background()

	archive, _ := afs.NewMemory("archive")
	router, _ := genfile.NewRouter([]genfile.Provider{genfile.NewReadOnlyProvider(archive)})

	err := router.CreateFolder(ctx, genfile.MustParsePath("/archive/new"))
	fmt.Println(genfile.IsReadOnly(err))
	// Output:
	// true
}

func printTree(node *genfile.GenericFileTree, depth int) {
	fmt.Printf("%s%s (%s)\n", strings.Repeat("  ", depth), node.File.Name, node.File.Provider)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}
