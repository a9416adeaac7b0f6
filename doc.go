// Package clangdex bridges a clang analyzer plugin and a source index. It
// instruments an arbitrary C/C++ build so the compiler emits semantic facts,
// merges those facts into a project-wide inheritance graph, and projects
// them into needles: searchable (tag, value) pairs scoped to a whole file or
// to one line.
//
// # Pipeline
//
// A [Pipeline] is an explicit state machine driven by the build controller:
//
//  1. Init: the controller passes its base environment; the pipeline
//     returns it merged with CC/CXX and DXR_* variables that load the
//     analyzer plugin, and creates the emission folder.
//  2. PreBuild: a synchronization point with no action.
//  3. Build: the controller runs the build and reports the outcome.
//  4. PostBuild: the pipeline loads the implementation facts of the whole
//     project, builds the inheritance graph and returns a [Factory].
//
// The Factory builds one [FileIndexer] per source file. Each indexer reads
// only that file's emissions and shares the project graph read-only, so
// indexers can be built concurrently.
//
// # Usage
//
//	tree := &clangdex.Tree{SourceFolder: "src", ObjectFolder: "obj", TempFolder: "tmp", PluginFolder: "plugins"}
//	e, err := clangdex.New("clangdex.db", tree)
//	if err != nil { ... }
//	defer e.Close()
//
//	stats, err := e.Index(ctx, clangdex.EnvironVars(os.Environ()), []string{"make", "-j8"})
//
//	q := e.Query()
//	hits, err := q.NeedlesOnLine("derived.cpp", 5)
//	h, err := q.TypeHierarchy("ns::Derived")
//
// When the build runs outside clangdex, export the variables from
// [Pipeline.Overrides] and call [Engine.Watch] to re-index as emissions land.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads the persisted index:
//
//   - [QueryBuilder.NeedlesInFile]: every needle of a file.
//   - [QueryBuilder.NeedlesOnLine]: the line needles starting on one line.
//   - [QueryBuilder.Search]: needles by value, optionally filtered by tag.
//   - [QueryBuilder.TypeHierarchy]: parents, children, ancestors and
//     descendants of a type.
package clangdex
