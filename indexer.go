package clangdex

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/clangdex/internal/facts"
	"github.com/jward/clangdex/internal/inherit"
	"github.com/jward/clangdex/internal/needle"
)

// Factory builds the indexer for one source file. It is safe for
// concurrent use.
type Factory func(path string, contents []byte, tree *Tree) (*FileIndexer, error)

// translationUnitExts are the sources the analyzer must have emitted facts
// for. Anything else (headers, scripts, docs) may legitimately have none.
var translationUnitExts = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cxx": true, ".c++": true,
	".m": true, ".mm": true,
}

// IsTranslationUnit reports whether path is compiled on its own.
func IsTranslationUnit(path string) bool {
	return translationUnitExts[strings.ToLower(filepath.Ext(path))]
}

// FileIndexer holds the needles, refs and annotations of one file.
type FileIndexer struct {
	path     string
	contents []byte
	facts    *facts.Table
	graph    *inherit.Graph

	fileNeedles []needle.Needle
	lineNeedles []needle.Needle
	byLine      map[int][]needle.Needle
	refs        map[int][]needle.Ref
	annotations map[int][]needle.Annotation
}

func newFactory(fs *facts.Store, g *inherit.Graph, reg *needle.Registry) Factory {
	return func(path string, contents []byte, tree *Tree) (*FileIndexer, error) {
		store := fs
		if tree != nil && tree.ClangTempFolder() != fs.Dir() {
			store = facts.NewStore(tree.ClangTempFolder(), tree.SourceFolder)
		}
		t, err := store.ForPath(path)
		if err != nil {
			if !errors.Is(err, facts.ErrFactSourceMissing) || IsTranslationUnit(path) {
				return nil, fmt.Errorf("clangdex: index %s: %w", path, err)
			}
			t = facts.NewTable()
		}
		file, line, err := reg.Project(t, g)
		if err != nil {
			return nil, fmt.Errorf("clangdex: index %s: %w", path, err)
		}
		return &FileIndexer{
			path:        path,
			contents:    contents,
			facts:       t,
			graph:       g,
			fileNeedles: file,
			lineNeedles: line,
			byLine:      needle.ByLine(line),
			refs:        reg.RefsByLine(t),
			annotations: reg.AnnotationsByLine(t),
		}, nil
	}
}

// Path returns the path the indexer was built for.
func (fi *FileIndexer) Path() string { return fi.path }

// Contents returns the file contents passed to the factory.
func (fi *FileIndexer) Contents() []byte { return fi.contents }

// Facts returns the file's condensed facts, unfiltered.
func (fi *FileIndexer) Facts() *facts.Table { return fi.facts }

// Needles returns the file-scoped needles.
func (fi *FileIndexer) Needles() []needle.Needle { return fi.fileNeedles }

// LineNeedles returns the line-scoped needles in projection order.
func (fi *FileIndexer) LineNeedles() []needle.Needle { return fi.lineNeedles }

// NeedlesByLine groups the line-scoped needles by starting line.
func (fi *FileIndexer) NeedlesByLine() map[int][]needle.Needle { return fi.byLine }

// RefsByLine returns the reference spans grouped by line. Empty unless a
// ref extractor is registered.
func (fi *FileIndexer) RefsByLine() map[int][]needle.Ref { return fi.refs }

// AnnotationsByLine returns the inline annotations grouped by line.
func (fi *FileIndexer) AnnotationsByLine() map[int][]needle.Annotation { return fi.annotations }

// Ancestors answers from the project-wide graph shared by every indexer.
func (fi *FileIndexer) Ancestors(name string) ([]string, error) {
	return fi.graph.Ancestors(name)
}

// Descendants answers from the project-wide graph.
func (fi *FileIndexer) Descendants(name string) ([]string, error) {
	return fi.graph.Descendants(name)
}
