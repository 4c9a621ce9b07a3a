package essentials

import "sort"

// PathSet is a deduplicated set of absolute file paths.
type PathSet map[string]struct{}

// NewPathSet builds a set from paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts a path.
func (s PathSet) Add(path string) { s[path] = struct{}{} }

// Has reports whether path is in the set. A nil set contains nothing.
func (s PathSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of paths.
func (s PathSet) Len() int { return len(s) }

// Sorted returns the paths in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
