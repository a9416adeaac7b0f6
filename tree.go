package clangdex

import (
	"path/filepath"
	"sort"
	"strings"
)

// Tree is the host's view of one indexed project.
type Tree struct {
	SourceFolder string
	ObjectFolder string
	TempFolder   string
	PluginFolder string
}

// ClangTempFolder is where the analyzer writes its emissions for this tree.
func (t *Tree) ClangTempFolder() string {
	return filepath.Join(t.TempFolder, "plugins", "clang")
}

// PluginLibrary is the path of the analyzer's shared object.
func (t *Tree) PluginLibrary() string {
	return filepath.Join(t.PluginFolder, "clang", "libclang-index-plugin.so")
}

// Abs returns a copy of t with every non-empty folder made absolute.
func (t *Tree) Abs() (*Tree, error) {
	out := *t
	for _, f := range []*string{&out.SourceFolder, &out.ObjectFolder, &out.TempFolder, &out.PluginFolder} {
		if *f == "" {
			continue
		}
		a, err := filepath.Abs(*f)
		if err != nil {
			return nil, err
		}
		*f = a
	}
	return &out, nil
}

// Vars is a set of build environment variables.
type Vars map[string]string

// EnvironVars parses "KEY=value" entries as returned by os.Environ.
// Entries without '=' are ignored; later entries win.
func EnvironVars(env []string) Vars {
	v := make(Vars, len(env))
	for _, kv := range env {
		k, val, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		v[k] = val
	}
	return v
}

// Environ renders v as sorted "KEY=value" entries for exec.Cmd.Env.
func (v Vars) Environ() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + v[k]
	}
	return out
}

// Merge returns a new set holding v and overrides. Overrides win.
func (v Vars) Merge(overrides Vars) Vars {
	out := make(Vars, len(v)+len(overrides))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range overrides {
		out[k] = val
	}
	return out
}
