package genfile

import (
	"context"
	"strings"

	"github.com/gobwas/glob"
)

// ============================================================================
// FileSelector Interface
// ============================================================================

// FileSelector filters files while FindFiles walks a tree.
//
// Selectors compose with And, Or and Not:
//
//	selector := genfile.And(
//	    genfile.Glob("*.pdf"),
//	    genfile.Tagged("finance"),
//	)
//	files, err := router.FindFiles(ctx, genfile.GetTreeOptions{IncludeMetadata: true}, selector)
type FileSelector interface {
	// Match reports whether the file belongs in the results.
	Match(file *GenericFile) bool

	// TraverseDescendants reports whether the folder's children are visited.
	// Only called for folders.
	TraverseDescendants(file *GenericFile) bool
}

// ============================================================================
// FindFiles
// ============================================================================

// FindFiles returns the decorated files of the tree selected by opts that
// match selector, in pre-order. A nil selector matches everything. Nodes
// without a path, such as the combined root, are never returned.
func (r *Router) FindFiles(ctx context.Context, opts GetTreeOptions, selector FileSelector) ([]*GenericFile, error) {
	if selector == nil {
		selector = All()
	}

	tree, err := r.GetTree(ctx, opts)
	if err != nil {
		return nil, err
	}

	var results []*GenericFile
	tree.Walk(func(node *GenericFileTree) bool {
		if node.File == nil {
			return true
		}
		if !node.File.Path.IsZero() && selector.Match(node.File) {
			results = append(results, node.File)
		}
		return !node.File.IsFolder() || node.File.Path.IsZero() || selector.TraverseDescendants(node.File)
	})
	return results, nil
}

// ============================================================================
// All
// ============================================================================

// AllSelector matches every file.
type AllSelector struct{}

func (s AllSelector) Match(file *GenericFile) bool               { return true }
func (s AllSelector) TraverseDescendants(file *GenericFile) bool { return true }

// All returns a selector matching every file.
func All() FileSelector {
	return AllSelector{}
}

// ============================================================================
// Glob - Name pattern matching
// ============================================================================

type globSelector struct {
	pattern glob.Glob
}

// Glob matches file names against a pattern.
// Supports: *, ?, [abc], [a-z], {a,b}
//
// Examples:
//
//	Glob("*.txt")           // All .txt files
//	Glob("image_????.jpg")  // image_0001.jpg, etc.
//	Glob("*.{jpg,png}")     // JPEG and PNG files
//
// An invalid pattern matches nothing.
func Glob(pattern string) FileSelector {
	g, err := glob.Compile(pattern)
	if err != nil {
		return FuncSelector(func(*GenericFile) bool { return false })
	}
	return &globSelector{pattern: g}
}

func (s *globSelector) Match(file *GenericFile) bool {
	return s.pattern.Match(file.Name)
}

func (s *globSelector) TraverseDescendants(file *GenericFile) bool {
	return true
}

// ============================================================================
// Tagged - Tag matching
// ============================================================================

type tagSelector struct {
	tag string
}

// Tagged matches files carrying tag in their "tags" metadata. The tree must
// be fetched with IncludeMetadata for metadata to be present.
func Tagged(tag string) FileSelector {
	return &tagSelector{tag: strings.ToLower(strings.TrimSpace(tag))}
}

func (s *tagSelector) Match(file *GenericFile) bool {
	for _, t := range ParseTags(file.Metadata[MetadataKeyTags]) {
		if t == s.tag {
			return true
		}
	}
	return false
}

func (s *tagSelector) TraverseDescendants(file *GenericFile) bool {
	return true
}

// ============================================================================
// Depth - Depth limiting
// ============================================================================

type depthSelector struct {
	maxDepth int
	base     Path
}

// Depth limits matches and traversal to maxDepth levels below base.
// Depth 1 = immediate children only.
//
// Example:
//
//	Depth(2, genfile.MustParsePath("/docs"))  // Up to 2 levels deep below /docs
func Depth(maxDepth int, base Path) FileSelector {
	return &depthSelector{maxDepth: maxDepth, base: base}
}

func (s *depthSelector) depth(p Path) int {
	rel, ok := p.Rel(s.base)
	if !ok {
		return -1
	}
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func (s *depthSelector) Match(file *GenericFile) bool {
	d := s.depth(file.Path)
	return d >= 0 && d <= s.maxDepth
}

func (s *depthSelector) TraverseDescendants(file *GenericFile) bool {
	d := s.depth(file.Path)
	return d < 0 || d < s.maxDepth
}

// ============================================================================
// Composable Selectors (And, Or, Not)
// ============================================================================

type andSelector struct {
	selectors []FileSelector
}

// And matches only if ALL selectors match.
func And(selectors ...FileSelector) FileSelector {
	return &andSelector{selectors: selectors}
}

func (s *andSelector) Match(file *GenericFile) bool {
	for _, sel := range s.selectors {
		if !sel.Match(file) {
			return false
		}
	}
	return true
}

func (s *andSelector) TraverseDescendants(file *GenericFile) bool {
	for _, sel := range s.selectors {
		if !sel.TraverseDescendants(file) {
			return false
		}
	}
	return true
}

type orSelector struct {
	selectors []FileSelector
}

// Or matches if ANY selector matches.
func Or(selectors ...FileSelector) FileSelector {
	return &orSelector{selectors: selectors}
}

func (s *orSelector) Match(file *GenericFile) bool {
	for _, sel := range s.selectors {
		if sel.Match(file) {
			return true
		}
	}
	return false
}

func (s *orSelector) TraverseDescendants(file *GenericFile) bool {
	for _, sel := range s.selectors {
		if sel.TraverseDescendants(file) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector FileSelector
}

// Not inverts a selector's match result.
func Not(selector FileSelector) FileSelector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(file *GenericFile) bool {
	return !s.selector.Match(file)
}

func (s *notSelector) TraverseDescendants(file *GenericFile) bool {
	return true
}

// ============================================================================
// FuncSelector - Custom logic
// ============================================================================

type funcSelector struct {
	matchFn    func(*GenericFile) bool
	traverseFn func(*GenericFile) bool
}

// FuncSelector creates a selector from a custom function.
//
// Example:
//
//	FuncSelector(func(f *genfile.GenericFile) bool {
//	    return f.Size > 1024 && strings.Contains(f.Name, "report")
//	})
func FuncSelector(fn func(*GenericFile) bool) FileSelector {
	return &funcSelector{
		matchFn:    fn,
		traverseFn: func(*GenericFile) bool { return true },
	}
}

// FuncSelectorFull creates a selector with custom match and traverse functions.
func FuncSelectorFull(matchFn, traverseFn func(*GenericFile) bool) FileSelector {
	return &funcSelector{
		matchFn:    matchFn,
		traverseFn: traverseFn,
	}
}

func (s *funcSelector) Match(file *GenericFile) bool               { return s.matchFn(file) }
func (s *funcSelector) TraverseDescendants(file *GenericFile) bool { return s.traverseFn(file) }
