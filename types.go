package clangdex

import (
	"github.com/jward/clangdex/internal/needle"
	"github.com/jward/clangdex/internal/store"
)

// Public type aliases for internal types used in the Engine and
// QueryBuilder API. External consumers use these names; no conversion is
// needed.

type Store = store.Store
type File = store.File
type Edge = store.Edge
type StoredNeedle = store.Needle
type Needle = needle.Needle
type Ref = needle.Ref
type Annotation = needle.Annotation
