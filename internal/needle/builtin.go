package needle

import "github.com/jward/clangdex/internal/facts"

// builtinSchemas are the fields the clang index plugin emits per kind.
var builtinSchemas = map[string][]string{
	"function":  {"name", "qualname", "type", "args", "loc", "extent"},
	"variable":  {"name", "qualname", "type", "loc", "extent"},
	"type":      {"name", "qualname", "kind", "loc", "extent"},
	"typedef":   {"name", "qualname", "loc", "extent"},
	"macro":     {"name", "loc", "text"},
	"namespace": {"name", "qualname", "loc"},
	"ref":       {"qualname", "kind", "loc", "extent"},
	"call":      {"callername", "callerloc", "calleename", "calleeloc", "loc"},
	"warning":   {"msg", "opt", "loc"},
	"include":   {"source_path", "target_path", "loc"},
	"impl":      {"tbname", "tcname", "access"},
}

// builtinPositional are the fields holding a "path:line:col" position.
var builtinPositional = map[string][]string{
	"function":  {"loc"},
	"variable":  {"loc"},
	"type":      {"loc"},
	"typedef":   {"loc"},
	"macro":     {"loc"},
	"namespace": {"loc"},
	"ref":       {"loc"},
	"call":      {"callerloc", "calleeloc", "loc"},
	"warning":   {"loc"},
	"include":   {"loc"},
	"impl":      {},
}

// builtinMappings mirror the needle set of the original clang plugin.
var builtinMappings = []Mapping{
	{Kind: "function", Tag: "function", Key1: "qualname", Key2: "name", Span: "loc", Prefix: "c"},
	{Kind: "variable", Tag: "var", Key1: "qualname", Key2: "name", Span: "loc", Prefix: "c"},
	{Kind: "type", Tag: "type", Key1: "qualname", Key2: "name", Span: "loc", Prefix: "c"},
	{Kind: "typedef", Tag: "typedef", Key1: "qualname", Key2: "name", Span: "loc", Prefix: "c"},
	{Kind: "macro", Tag: "macro", Key1: "name", Span: "loc", Prefix: "c"},
	{Kind: "namespace", Tag: "namespace", Key1: "qualname", Key2: "name", Span: "loc", Prefix: "c"},
	{Kind: "ref", Tag: "ref", Key1: "qualname", Key2: "kind", Span: "loc", Prefix: "c"},
	{Kind: "call", Tag: "calls", Key1: "calleename", Key2: "callername", Span: "loc", Prefix: "c"},
	{Kind: "warning", Tag: "warning", Key1: "msg", Key2: "opt", Span: "loc", Prefix: "c"},
	{Kind: "include", Tag: "include", Key1: "target_path", Prefix: "c"},
}

var builtinHierarchy = []HierarchyMapping{
	{Kind: "type", NameField: "qualname", SpanField: "loc", Tag: "bases", Prefix: "c", Direction: Ancestors},
	{Kind: "type", NameField: "qualname", SpanField: "loc", Tag: "derived", Prefix: "c", Direction: Descendants},
}

// Builtin returns a registry preloaded with the clang plugin's schemas,
// needle mappings and warning annotations.
func Builtin() *Registry {
	r := WithSchemas()
	for _, m := range builtinMappings {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	for _, h := range builtinHierarchy {
		if err := r.RegisterHierarchy(h); err != nil {
			panic(err)
		}
	}
	r.RegisterAnnotations("warning", warningAnnotation)
	return r
}

// WithSchemas returns an empty registry that only knows the builtin schemas,
// for callers assembling their own mappings.
func WithSchemas() *Registry {
	r := NewRegistry()
	for kind, fields := range builtinSchemas {
		r.RegisterSchema(kind, fields...)
	}
	for kind, fields := range builtinPositional {
		r.RegisterPositional(kind, fields...)
	}
	return r
}

func warningAnnotation(rec facts.Record) (Annotation, bool) {
	sp, err := rec.Span("loc")
	if err != nil {
		return Annotation{}, false
	}
	msg := rec.Value("msg")
	if opt := rec.Value("opt"); opt != "" {
		msg += " [" + opt + "]"
	}
	return Annotation{Line: sp.StartLine, Class: "warning", Message: msg}, true
}
