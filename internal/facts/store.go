package facts

import (
	"path/filepath"
	"strings"
)

// Store is the per-file lookup over an emission folder. It holds no state
// beyond the two folder paths, so concurrent lookups are safe.
type Store struct {
	dir        string
	sourceRoot string
}

// NewStore returns a Store reading emissions from dir for sources under
// sourceRoot.
func NewStore(dir, sourceRoot string) *Store {
	return &Store{dir: dir, sourceRoot: sourceRoot}
}

// Dir returns the emission folder.
func (s *Store) Dir() string { return s.dir }

// ForFile loads the condensed facts for root/relPath. No only-impl filter is
// applied: the per-file view keeps every occurrence, including duplicates
// emitted by header inclusion.
func (s *Store) ForFile(root, relPath string) (*Table, error) {
	return LoadFile(s.dir, s.key(root, relPath))
}

// ForPath splits path into (source root, relative path) and calls ForFile.
func (s *Store) ForPath(path string) (*Table, error) {
	root, rel := s.Split(path)
	return s.ForFile(root, rel)
}

// Split returns the source root and path relative to it. Relative inputs
// are taken to be relative to the source root already.
func (s *Store) Split(path string) (root, rel string) {
	if !filepath.IsAbs(path) {
		return s.sourceRoot, filepath.Clean(path)
	}
	r, err := filepath.Rel(s.sourceRoot, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return filepath.Dir(path), filepath.Base(path)
	}
	return s.sourceRoot, r
}

// key is the path the analyzer hashed: relative to the source root when
// root/relPath lies under it.
func (s *Store) key(root, relPath string) string {
	if root == "" || root == s.sourceRoot {
		return relPath
	}
	_, rel := s.Split(filepath.Join(root, relPath))
	return rel
}
