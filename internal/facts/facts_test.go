package facts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEmission writes an emission file named after relPath's prefix.
func writeEmission(t *testing.T, dir, relPath, suffix, body string) string {
	t.Helper()
	name := EmissionPrefix(relPath) + EmissionExt
	if suffix != "" {
		name = EmissionPrefix(relPath) + "." + suffix + EmissionExt
	}
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// =============================================================================
// Record
// =============================================================================

func TestNewRecord_FieldsInOrder(t *testing.T) {
	t.Parallel()
	r := NewRecord("function", "name", "run", "qualname", "ns::run", "loc", "a.cpp:3:5")

	assert.Equal(t, []string{"name", "qualname", "loc"}, r.Fields())
	assert.Equal(t, "ns::run", r.Value("qualname"))
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestRecord_Int(t *testing.T) {
	t.Parallel()
	r := NewRecord("ref", "line", "42", "bad", "x")

	n, err := r.Int("line")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = r.Int("bad")
	require.Error(t, err)
	_, err = r.Int("missing")
	require.Error(t, err)
}

func TestParseSpan(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want Span
	}{
		{"a.cpp:3:5", Span{File: "a.cpp", StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 5}},
		{"src/a.cpp:3:5:4:1", Span{File: "src/a.cpp", StartLine: 3, StartCol: 5, EndLine: 4, EndCol: 1}},
		{"C:/w/a.cpp:7:2", Span{File: "C:/w/a.cpp", StartLine: 7, StartCol: 2, EndLine: 7, EndCol: 2}},
	}
	for _, tc := range cases {
		got, err := ParseSpan(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseSpan("nope")
	require.Error(t, err)
	_, err = ParseSpan("a.cpp:x:y")
	require.Error(t, err)
	for _, in := range []string{"f.c:0:0", "f.c:3:0", "f.c:-1:2", "f.c:2:1:0:4"} {
		_, err = ParseSpan(in)
		require.Error(t, err, in)
	}
}

// =============================================================================
// Table
// =============================================================================

func TestTable_SchemaMismatchRejected(t *testing.T) {
	t.Parallel()
	tb := NewTable()
	require.NoError(t, tb.Add(NewRecord("type", "name", "A", "loc", "a.h:1:1")))
	require.NoError(t, tb.Add(NewRecord("type", "name", "B", "loc", "a.h:2:1")))
	require.Error(t, tb.Add(NewRecord("type", "name", "C")))

	assert.Len(t, tb.Records("type"), 2)
	assert.Equal(t, []string{"name", "loc"}, tb.Schema("type"))
}

func TestTable_KindsFirstSeenOrder(t *testing.T) {
	t.Parallel()
	tb := NewTable()
	require.NoError(t, tb.Add(NewRecord("ref", "name", "x")))
	require.NoError(t, tb.Add(NewRecord("decl", "name", "y")))
	require.NoError(t, tb.Add(NewRecord("ref", "name", "z")))

	assert.Equal(t, []string{"ref", "decl"}, tb.Kinds())
	assert.Equal(t, 3, tb.Len())
}

func TestTable_NilSafe(t *testing.T) {
	t.Parallel()
	var tb *Table
	assert.Nil(t, tb.Records("ref"))
	assert.Nil(t, tb.Kinds())
	assert.Equal(t, 0, tb.Len())
}

// =============================================================================
// Load
// =============================================================================

func TestLoad_MergesAllEmissionFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeEmission(t, dir, "base.cpp", "1", "type,name,Base,qualname,Base,loc,base.h:1:7\n")
	writeEmission(t, dir, "derived.cpp", "1",
		"type,name,Derived,qualname,Derived,loc,derived.h:3:7\n"+
			"inheritance,parent,Base,child,Derived\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	tb, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, tb.Records("type"), 2)
	require.Len(t, tb.Records("inheritance"), 1)
	assert.Equal(t, "Base", tb.Records("inheritance")[0].Value("parent"))
}

func TestLoad_OnlyImplFiltersAndDedupes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// The same header compiled into two translation units.
	header := "type,name,Base,qualname,Base,loc,base.h:1:7\n" +
		"impl,tbname,Base,tcname,Derived,access,public\n"
	writeEmission(t, dir, "base.h", "tu1", header)
	writeEmission(t, dir, "base.h", "tu2", header)

	all, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, all.Records("impl"), 2)
	assert.Len(t, all.Records("type"), 2)

	impl, err := Load(dir, WithOnlyImpl())
	require.NoError(t, err)
	assert.Len(t, impl.Records("impl"), 1)
	assert.Empty(t, impl.Records("type"))
}

func TestLoad_DeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, f := range []string{"a.cpp", "b.cpp", "c.cpp", "d.cpp"} {
		writeEmission(t, dir, f, "", "ref,name,"+f+",loc,"+f+":1:1\n")
	}

	serial, err := Load(dir, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := Load(dir, WithWorkers(8))
	require.NoError(t, err)
	assert.Equal(t, serial.Records("ref"), parallel.Records("ref"))
}

func TestLoad_MissingFolder(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, ErrFactSourceMissing)

	var missing *FactSourceMissingError
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, missing.File)
}

func TestLoad_EmptyFolder(t *testing.T) {
	t.Parallel()
	_, err := Load(t.TempDir())
	require.ErrorIs(t, err, ErrFactSourceMissing)
}

func TestLoad_OddFieldCount(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeEmission(t, dir, "a.cpp", "", "ref,name,x,loc,a.cpp:1:1\nref,name,y,loc\n")

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrFactFormat)

	var fe *FactFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, p, fe.File)
	assert.Equal(t, 2, fe.Line)
	assert.Equal(t, "ref", fe.Kind)
}

func TestLoad_SchemaMismatchAcrossFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeEmission(t, dir, "a.cpp", "", "ref,name,x,loc,a.cpp:1:1\n")
	writeEmission(t, dir, "b.cpp", "", "ref,loc,b.cpp:1:1,name,y\n")

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrFactFormat)
}

func TestLoad_UnparsableRow(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeEmission(t, dir, "a.cpp", "", "ref,name,\"unterminated\n")

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrFactFormat)
}

func TestLoad_EmptyKind(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeEmission(t, dir, "a.cpp", "", ",name,x\n")

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrFactFormat)
}

func TestLoadFile_OnlyOwnEmissions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeEmission(t, dir, "src/a.cpp", "", "ref,name,A,loc,src/a.cpp:1:1\n")
	writeEmission(t, dir, "src/a.cpp", "tu2", "ref,name,A2,loc,src/a.cpp:2:1\n")
	writeEmission(t, dir, "src/b.cpp", "", "ref,name,B,loc,src/b.cpp:1:1\n")

	tb, err := LoadFile(dir, "src/a.cpp")
	require.NoError(t, err)
	require.Len(t, tb.Records("ref"), 2)
	assert.Equal(t, "A", tb.Records("ref")[0].Value("name"))
	assert.Equal(t, "A2", tb.Records("ref")[1].Value("name"))
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeEmission(t, dir, "b.cpp", "", "ref,name,B\n")

	_, err := LoadFile(dir, "a.cpp")
	var missing *FactSourceMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "a.cpp", missing.File)

	_, err = LoadFile(filepath.Join(dir, "absent"), "a.cpp")
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "a.cpp", missing.File)
}

// =============================================================================
// Store
// =============================================================================

func TestStore_ForPathSplitsSourceRoot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	root := t.TempDir()
	writeEmission(t, dir, "lib/x.cpp", "", "ref,name,X\n")

	s := NewStore(dir, root)
	r, rel := s.Split(filepath.Join(root, "lib", "x.cpp"))
	assert.Equal(t, root, r)
	assert.Equal(t, filepath.Join("lib", "x.cpp"), rel)

	tb, err := s.ForPath(filepath.Join(root, "lib", "x.cpp"))
	require.NoError(t, err)
	assert.Len(t, tb.Records("ref"), 1)

	tb, err = s.ForFile(root, "lib/x.cpp")
	require.NoError(t, err)
	assert.Len(t, tb.Records("ref"), 1)
}

func TestStore_ForFileKeepsDuplicates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	row := "impl,tbname,Base,tcname,Derived\n"
	writeEmission(t, dir, "d.h", "tu1", row)
	writeEmission(t, dir, "d.h", "tu2", row)

	tb, err := NewStore(dir, "/src").ForFile("/src", "d.h")
	require.NoError(t, err)
	assert.Len(t, tb.Records("impl"), 2)
}
