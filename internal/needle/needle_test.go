package needle

import (
	"testing"

	"github.com/jward/clangdex/internal/facts"
	"github.com/jward/clangdex/internal/inherit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOf(t *testing.T, recs ...facts.Record) *facts.Table {
	t.Helper()
	tb := facts.NewTable()
	for _, r := range recs {
		require.NoError(t, tb.Add(r))
	}
	return tb
}

func sampleTable(t *testing.T) *facts.Table {
	t.Helper()
	return tableOf(t,
		facts.NewRecord("type", "name", "Base", "qualname", "ns::Base", "kind", "class", "loc", "base.h:3:7", "extent", "10:40"),
		facts.NewRecord("type", "name", "Derived", "qualname", "ns::Derived", "kind", "class", "loc", "derived.h:5:7", "extent", "50:90"),
		facts.NewRecord("include", "source_path", "derived.h", "target_path", "base.h", "loc", "derived.h:1:1"),
		facts.NewRecord("function", "name", "run", "qualname", "ns::Derived::run", "type", "void", "args", "()", "loc", "derived.h:8:10", "extent", "60:80"),
		facts.NewRecord("mystery", "what", "ever"),
	)
}

func sampleGraph() *inherit.Graph {
	return inherit.FromEdges([]inherit.Edge{{Parent: "ns::Base", Child: "ns::Derived"}})
}

// =============================================================================
// Registration
// =============================================================================

func TestRegister_RequiresKindTagKey1(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.ErrorIs(t, r.Register(Mapping{Tag: "x", Key1: "name"}), ErrInvalidMapping)
	require.ErrorIs(t, r.Register(Mapping{Kind: "x", Key1: "name"}), ErrInvalidMapping)
	require.ErrorIs(t, r.Register(Mapping{Kind: "x", Tag: "x"}), ErrInvalidMapping)
	assert.Equal(t, 0, r.Len())
}

func TestRegister_UnknownFieldFailsFast(t *testing.T) {
	t.Parallel()
	r := WithSchemas()
	err := r.Register(Mapping{Kind: "function", Tag: "function", Key1: "qualnam", Span: "loc"})
	require.ErrorIs(t, err, ErrInvalidMapping)
	assert.Contains(t, err.Error(), "qualnam")

	err = r.RegisterHierarchy(HierarchyMapping{Kind: "type", NameField: "qualname", SpanField: "where", Tag: "bases"})
	require.ErrorIs(t, err, ErrInvalidMapping)
}

func TestRegister_UnknownKindAccepted(t *testing.T) {
	t.Parallel()
	r := WithSchemas()
	require.NoError(t, r.Register(Mapping{Kind: "concept", Tag: "concept", Key1: "name"}))
	assert.Len(t, r.Mappings(), 1)
}

func TestRegister_PairMappingIsFileScoped(t *testing.T) {
	t.Parallel()
	r := WithSchemas()
	require.NoError(t, r.Register(Mapping{Kind: "type", Tag: "type-name", Key1: "name", Key2: "qualname"}))

	tb := tableOf(t,
		facts.NewRecord("type", "name", "Base", "qualname", "ns::Base", "kind", "class", "loc", "base.h:3:7", "extent", "10:40"),
	)
	file, line, err := r.Project(tb, nil)
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.Equal(t, []Needle{{Tag: "type-name", Value: "Base", Key: "ns::Base"}}, file)
}

func TestRegister_SpanMustBePositional(t *testing.T) {
	t.Parallel()
	r := WithSchemas()
	err := r.Register(Mapping{Kind: "type", Tag: "type", Key1: "name", Span: "qualname"})
	require.ErrorIs(t, err, ErrInvalidMapping)
	assert.Contains(t, err.Error(), "not a position")

	err = r.RegisterHierarchy(HierarchyMapping{Kind: "type", NameField: "qualname", SpanField: "kind", Tag: "bases"})
	require.ErrorIs(t, err, ErrInvalidMapping)

	require.NoError(t, r.Register(Mapping{Kind: "call", Tag: "caller", Key1: "callername", Span: "callerloc"}))
	assert.Len(t, r.Mappings(), 1)
}

func TestMapping_FullTag(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "member-function", Mapping{Tag: "function", Prefix: "member"}.FullTag())
	assert.Equal(t, "function", Mapping{Tag: "function"}.FullTag())
}

func TestBuiltin_Loads(t *testing.T) {
	t.Parallel()
	r := Builtin()
	assert.Equal(t, len(builtinMappings)+len(builtinHierarchy), r.Len())
	s, ok := r.Schema("impl")
	require.True(t, ok)
	assert.Equal(t, []string{"tbname", "tcname", "access"}, s)
}

// =============================================================================
// Projection
// =============================================================================

func TestProject_EmptyRegistryYieldsEmpty(t *testing.T) {
	t.Parallel()
	file, line, err := NewRegistry().Project(sampleTable(t), sampleGraph())
	require.NoError(t, err)
	assert.NotNil(t, file)
	assert.NotNil(t, line)
	assert.Empty(t, file)
	assert.Empty(t, line)
}

func TestProject_NoRegisteredKindRecords(t *testing.T) {
	t.Parallel()
	tb := tableOf(t, facts.NewRecord("mystery", "what", "ever"))
	file, line, err := Builtin().Project(tb, sampleGraph())
	require.NoError(t, err)
	assert.Equal(t, []Needle{}, file)
	assert.Equal(t, []Needle{}, line)
}

func TestProject_SplitsByArity(t *testing.T) {
	t.Parallel()
	file, line, err := Builtin().Project(sampleTable(t), sampleGraph())
	require.NoError(t, err)

	require.Len(t, file, 1)
	assert.Equal(t, Needle{Tag: "c-include", Value: "base.h"}, file[0])

	for _, n := range file {
		assert.Equal(t, 2, n.Arity())
	}
	for _, n := range line {
		assert.Equal(t, 3, n.Arity())
	}

	all, err := Builtin().All(sampleTable(t), sampleGraph())
	require.NoError(t, err)
	assert.Len(t, all, len(file)+len(line))
}

func TestProject_LineNeedles(t *testing.T) {
	t.Parallel()
	_, line, err := Builtin().Project(sampleTable(t), sampleGraph())
	require.NoError(t, err)

	byLine := ByLine(line)
	require.Len(t, byLine[5], 2)
	assert.Equal(t, "c-type", byLine[5][0].Tag)
	assert.Equal(t, "ns::Derived", byLine[5][0].Value)
	assert.Equal(t, "Derived", byLine[5][0].Key)
	assert.Equal(t, "c-bases", byLine[5][1].Tag)
	assert.Equal(t, "ns::Base", byLine[5][1].Value)

	require.Len(t, byLine[3], 2)
	assert.Equal(t, "c-derived", byLine[3][1].Tag)
	assert.Equal(t, "ns::Derived", byLine[3][1].Value)

	require.Len(t, byLine[8], 1)
	assert.Equal(t, "c-function", byLine[8][0].Tag)
	assert.Equal(t, 10, byLine[8][0].Span.StartCol)
}

func TestProject_Idempotent(t *testing.T) {
	t.Parallel()
	r := Builtin()
	tb, g := sampleTable(t), sampleGraph()

	f1, l1, err := r.Project(tb, g)
	require.NoError(t, err)
	f2, l2, err := r.Project(tb, g)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.Equal(t, l1, l2)
}

func TestProject_NilGraphSkipsHierarchy(t *testing.T) {
	t.Parallel()
	_, line, err := Builtin().Project(sampleTable(t), nil)
	require.NoError(t, err)
	for _, n := range line {
		assert.NotEqual(t, "c-bases", n.Tag)
		assert.NotEqual(t, "c-derived", n.Tag)
	}
}

func TestProject_CycleSurfaces(t *testing.T) {
	t.Parallel()
	g := inherit.FromEdges([]inherit.Edge{
		{Parent: "ns::Base", Child: "ns::Derived"},
		{Parent: "ns::Derived", Child: "ns::Base"},
	})
	_, _, err := Builtin().Project(sampleTable(t), g)
	require.ErrorIs(t, err, inherit.ErrInheritanceCycle)
}

func TestProject_BadPositionIsFormatError(t *testing.T) {
	t.Parallel()
	tb := tableOf(t, facts.NewRecord("macro", "name", "MAX", "loc", "garbage", "text", "1"))
	_, _, err := Builtin().Project(tb, nil)
	require.ErrorIs(t, err, facts.ErrFactFormat)
}

func TestProject_LineZeroIsFormatError(t *testing.T) {
	t.Parallel()
	tb := tableOf(t, facts.NewRecord("macro", "name", "MAX", "loc", "f.c:0:0", "text", "1"))
	_, _, err := Builtin().Project(tb, nil)
	require.ErrorIs(t, err, facts.ErrFactFormat)
}

func TestProject_CustomMappingFileScoped(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Register(Mapping{Kind: "type", Tag: "type", Key1: "name", Prefix: "member"}))

	file, line, err := r.Project(sampleTable(t), nil)
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.Equal(t, []Needle{
		{Tag: "member-type", Value: "Base"},
		{Tag: "member-type", Value: "Derived"},
	}, file)
}

// =============================================================================
// Refs & annotations
// =============================================================================

func TestExtractors_EmptyByDefault(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	assert.Empty(t, r.RefsByLine(sampleTable(t)))
	assert.Empty(t, r.AnnotationsByLine(sampleTable(t)))
}

func TestExtractors_Registered(t *testing.T) {
	t.Parallel()
	tb := tableOf(t,
		facts.NewRecord("ref", "qualname", "ns::Base", "kind", "type", "loc", "derived.h:5:24", "extent", "70:78"),
		facts.NewRecord("warning", "msg", "unused variable", "opt", "-Wunused", "loc", "derived.h:9:3"),
	)
	r := Builtin()
	r.RegisterRefs("ref", func(rec facts.Record) (Ref, bool) {
		sp, err := rec.Span("loc")
		if err != nil {
			return Ref{}, false
		}
		return Ref{Line: sp.StartLine, StartCol: sp.StartCol, Target: rec.Value("qualname"), Kind: rec.Value("kind")}, true
	})

	refs := r.RefsByLine(tb)
	require.Len(t, refs[5], 1)
	assert.Equal(t, "ns::Base", refs[5][0].Target)

	anns := r.AnnotationsByLine(tb)
	require.Len(t, anns[9], 1)
	assert.Equal(t, "unused variable [-Wunused]", anns[9][0].Message)
}

func TestSplit_DisjointUnion(t *testing.T) {
	t.Parallel()
	sp := &facts.Span{StartLine: 2, EndLine: 2}
	all := []Needle{{Tag: "a", Value: "1"}, {Tag: "b", Value: "2", Span: sp}, {Tag: "c", Value: "3"}}
	file, line := Split(all)
	assert.Equal(t, []Needle{all[0], all[2]}, file)
	assert.Equal(t, []Needle{all[1]}, line)
	assert.Equal(t, map[int][]Needle{2: {all[1]}}, ByLine(line))
}
