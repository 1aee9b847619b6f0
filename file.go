package genfile

import (
	"fmt"
	"strings"
	"time"
)

// CombinedProviderID is the provider id of the synthetic namespace root.
const CombinedProviderID = "combined"

// combinedRootName is the display name of the synthetic namespace root.
const combinedRootName = "root"

// FileType distinguishes files from folders.
type FileType string

const (
	FileTypeFile   FileType = "FILE"
	FileTypeFolder FileType = "FOLDER"
)

// Metadata is the free-form key/value data attached to a file.
// Backends that only store a single pair expose it as a one-entry map.
type Metadata map[string]string

// Clone returns a copy of m. A nil map stays nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GenericFile is a file or folder as seen through the unified namespace.
type GenericFile struct {
	Provider   string
	Name       string
	Path       Path
	ParentPath Path
	Type       FileType

	Created  time.Time
	Modified time.Time
	Deleted  time.Time

	CreatedBy string
	DeletedBy string
	Owner     string

	Size int64

	CanEdit        bool
	CanDelete      bool
	HasChildren    bool
	CanAddChildren bool // folders only

	// OriginalLocation is set for deleted entities only: the ancestor trail of
	// the original location, root first, ending with the original path.
	OriginalLocation []Path

	Metadata Metadata

	// Attributes holds backend-specific and presentational values
	// (extension, object id, content type, checksums).
	Attributes map[string]string
}

// IsFolder reports whether f is a folder.
func (f *GenericFile) IsFolder() bool {
	return f.Type == FileTypeFolder
}

// SetAttribute sets an attribute, allocating the map on first use.
func (f *GenericFile) SetAttribute(key, value string) {
	if f.Attributes == nil {
		f.Attributes = make(map[string]string)
	}
	f.Attributes[key] = value
}

// Clone returns a deep copy of f.
func (f *GenericFile) Clone() *GenericFile {
	if f == nil {
		return nil
	}
	c := *f
	if f.OriginalLocation != nil {
		c.OriginalLocation = append([]Path(nil), f.OriginalLocation...)
	}
	c.Metadata = f.Metadata.Clone()
	if f.Attributes != nil {
		c.Attributes = make(map[string]string, len(f.Attributes))
		for k, v := range f.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// GenericFileTree is one node of a folder hierarchy. A nil or empty Children
// slice marks a leaf or an unexpanded folder.
type GenericFileTree struct {
	File     *GenericFile
	Children []*GenericFileTree
}

// Clone returns a deep copy of t.
func (t *GenericFileTree) Clone() *GenericFileTree {
	if t == nil {
		return nil
	}
	c := &GenericFileTree{File: t.File.Clone()}
	if t.Children != nil {
		c.Children = make([]*GenericFileTree, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Walk visits t and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (t *GenericFileTree) Walk(fn func(node *GenericFileTree) bool) {
	if t == nil {
		return
	}
	if !fn(t) {
		return
	}
	for _, child := range t.Children {
		child.Walk(fn)
	}
}

// newCombinedRoot builds the synthetic folder that parents every provider's
// tree when more than one provider is registered.
func newCombinedRoot(children []*GenericFileTree) *GenericFileTree {
	return &GenericFileTree{
		File: &GenericFile{
			Provider:    CombinedProviderID,
			Name:        combinedRootName,
			Type:        FileTypeFolder,
			HasChildren: len(children) > 0,
		},
		Children: children,
	}
}

// GetFileOptions configures single-file retrieval.
type GetFileOptions struct {
	// IncludeMetadata attaches metadata and runs metadata decoration.
	IncludeMetadata bool
}

// GetTreeOptions configures tree retrieval.
type GetTreeOptions struct {
	IncludeMetadata bool

	// BasePath scopes the tree. The zero Path means the whole namespace.
	BasePath Path
}

// FileOptions narrows tree options to the options applied to each node.
// New tree-level flags that affect file decoration must be copied here.
func (o GetTreeOptions) FileOptions() GetFileOptions {
	return GetFileOptions{IncludeMetadata: o.IncludeMetadata}
}

// Permission is an access right checked by HasAccess.
type Permission int

const (
	PermissionRead Permission = iota
	PermissionWrite
	PermissionDelete
	PermissionCreate
)

func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "READ"
	case PermissionWrite:
		return "WRITE"
	case PermissionDelete:
		return "DELETE"
	case PermissionCreate:
		return "CREATE"
	default:
		return fmt.Sprintf("Permission(%d)", int(p))
	}
}

// ParsePermission parses a permission name, case-insensitively.
func ParsePermission(s string) (Permission, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READ":
		return PermissionRead, nil
	case "WRITE":
		return PermissionWrite, nil
	case "DELETE":
		return PermissionDelete, nil
	case "CREATE":
		return PermissionCreate, nil
	default:
		return 0, fmt.Errorf("unknown permission %q", s)
	}
}
