package clangdex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jward/clangdex/internal/facts"
	"github.com/stretchr/testify/require"
)

// newTestTree lays out source, object, temp and plugin folders under one
// temp dir. Emissions are not written; see writeProject.
func newTestTree(t *testing.T) *Tree {
	t.Helper()
	root := t.TempDir()
	tree := &Tree{
		SourceFolder: filepath.Join(root, "src"),
		ObjectFolder: filepath.Join(root, "obj"),
		TempFolder:   filepath.Join(root, "tmp"),
		PluginFolder: filepath.Join(root, "plugins"),
	}
	require.NoError(t, os.MkdirAll(tree.SourceFolder, 0o755))
	return tree
}

func writeSource(t *testing.T, tree *Tree, rel, body string) {
	t.Helper()
	p := filepath.Join(tree.SourceFolder, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

// writeEmission writes one analyzer emission for rel into the tree's
// clang temp folder.
func writeEmission(t *testing.T, tree *Tree, rel, suffix, body string) {
	t.Helper()
	dir := tree.ClangTempFolder()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	name := facts.EmissionPrefix(rel) + "." + suffix + ".csv"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const (
	baseHeader = `#pragma once
namespace ns {
class Base {
public:
  virtual ~Base();
};
}
`
	derivedSource = `#include "base.h"
namespace ns {
void helper();

class Derived : public Base {
public:
  void run();
};
}
`
)

// writeProject writes a two-file project where ns::Derived (derived.cpp:5)
// inherits ns::Base (base.h:3), plus a header with no emissions.
func writeProject(t *testing.T, tree *Tree) {
	t.Helper()
	writeSource(t, tree, "base.h", baseHeader)
	writeSource(t, tree, "derived.cpp", derivedSource)
	writeSource(t, tree, "util.h", "#define UTIL 1\n")

	writeEmission(t, tree, "base.h", "derived.cpp", baseEmission)
	writeEmission(t, tree, "derived.cpp", "derived.cpp", derivedEmission)
}

const (
	baseEmission = "type,name,Base,qualname,ns::Base,kind,class,loc,base.h:3:7,extent,30:60\n"

	derivedEmission = "include,source_path,derived.cpp,target_path,base.h,loc,derived.cpp:1:1\n" +
		"type,name,Derived,qualname,ns::Derived,kind,class,loc,derived.cpp:5:7,extent,50:90\n" +
		"function,name,run,qualname,ns::Derived::run,type,void,args,(),loc,derived.cpp:7:8,extent,70:80\n" +
		"impl,tbname,ns::Base,tcname,ns::Derived,access,public\n"
)

// emission is one file the fake build writes into the emission folder.
type emission struct {
	rel  string
	body string
}

// emitCommand returns a build command that writes emissions the way the
// analyzer does, into $DXR_CXX_CLANG_TEMP_FOLDER.
func emitCommand(emissions ...emission) []string {
	var sb strings.Builder
	sb.WriteString(`set -e; cd "$DXR_CXX_CLANG_TEMP_FOLDER"; `)
	for _, e := range emissions {
		fmt.Fprintf(&sb, "printf '%%s' '%s' > %s.tu.csv; ", e.body, facts.EmissionPrefix(e.rel))
	}
	return []string{"sh", "-c", sb.String()}
}
