package genfile

import (
	"fmt"
	"path"
	"strings"
)

// Path identifies a location in the unified namespace.
// Paths are slash-rooted and cleaned; the zero value means "no path" and is
// used for the combined root and for whole-namespace requests.
type Path struct {
	p string
}

// RootPath returns the namespace root "/".
func RootPath() Path {
	return Path{p: "/"}
}

// ParsePath validates and normalizes s into a Path.
// A missing leading slash is added and trailing slashes are dropped.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(s, 0) {
		return Path{}, fmt.Errorf("%w: %q contains NUL", ErrInvalidPath, s)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return Path{}, fmt.Errorf("%w: %q contains '..'", ErrInvalidPath, s)
		}
	}
	return Path{p: normalizePath(s)}, nil
}

// MustParsePath is like ParsePath but panics on error.
// Intended for constants and tests.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// normalizePath ensures the path starts with "/" and has no trailing slash.
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// IsZero reports whether p is the "no path" value.
func (p Path) IsZero() bool {
	return p.p == ""
}

// IsRoot reports whether p is "/".
func (p Path) IsRoot() bool {
	return p.p == "/"
}

func (p Path) String() string {
	return p.p
}

// Name returns the last segment, or "" for the root and the zero path.
func (p Path) Name() string {
	if p.IsZero() || p.IsRoot() {
		return ""
	}
	return path.Base(p.p)
}

// Parent returns the enclosing folder. The root and the zero path have no
// parent and return the zero Path.
func (p Path) Parent() Path {
	if p.IsZero() || p.IsRoot() {
		return Path{}
	}
	return Path{p: path.Dir(p.p)}
}

// Segments splits p into its names, root first. The root has no segments.
func (p Path) Segments() []string {
	if p.IsZero() || p.IsRoot() {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p.p, "/"), "/")
}

// Ancestors returns every folder above p, root first.
func (p Path) Ancestors() []Path {
	var out []Path
	for q := p.Parent(); !q.IsZero(); q = q.Parent() {
		out = append(out, q)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Join appends elements to p. Joining onto the zero path starts at the root.
func (p Path) Join(elem ...string) Path {
	base := p.p
	if base == "" {
		base = "/"
	}
	return Path{p: normalizePath(path.Join(append([]string{base}, elem...)...))}
}

// HasPrefix reports whether p equals prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if p.IsZero() || prefix.IsZero() {
		return false
	}
	if prefix.IsRoot() || p.p == prefix.p {
		return true
	}
	return strings.HasPrefix(p.p, prefix.p+"/")
}

// Rel returns p relative to base, with a leading slash ("/" when equal).
// The second result is false when p is not under base.
func (p Path) Rel(base Path) (string, bool) {
	if !p.HasPrefix(base) {
		return "", false
	}
	if base.IsRoot() {
		return p.p, true
	}
	rel := strings.TrimPrefix(p.p, base.p)
	if rel == "" {
		rel = "/"
	}
	return rel, true
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.p), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the
// zero Path.
func (p *Path) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Path{}
		return nil
	}
	parsed, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
