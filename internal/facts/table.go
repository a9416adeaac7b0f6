package facts

import "fmt"

// implKinds are the kinds whose rows are the implementation-owning emission
// for an entity. Only these survive a load with WithOnlyImpl.
var implKinds = map[string]bool{
	"impl":        true,
	"inheritance": true,
}

// IsImplKind reports whether kind survives the only-impl filter.
func IsImplKind(kind string) bool {
	return implKinds[kind]
}

// Table groups records by kind, preserving first-seen kind order and
// per-kind insertion order. The zero value is not usable; use NewTable.
type Table struct {
	kinds   []string
	records map[string][]Record
	schemas map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		records: make(map[string][]Record),
		schemas: make(map[string]string),
	}
}

// Add appends r. Every record of a kind must carry the same field names in
// the same order as the first one added.
func (t *Table) Add(r Record) error {
	if r.Kind == "" {
		return fmt.Errorf("record has empty kind")
	}
	sig := r.schema()
	if want, ok := t.schemas[r.Kind]; ok {
		if want != sig {
			return fmt.Errorf("fields [%s] do not match schema [%s]", sig, want)
		}
	} else {
		t.schemas[r.Kind] = sig
		t.kinds = append(t.kinds, r.Kind)
	}
	t.records[r.Kind] = append(t.records[r.Kind], r)
	return nil
}

// Records returns the records of kind in insertion order. Safe on a nil table.
func (t *Table) Records(kind string) []Record {
	if t == nil {
		return nil
	}
	return t.records[kind]
}

// Kinds returns the kinds present, in first-seen order.
func (t *Table) Kinds() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.kinds))
	copy(out, t.kinds)
	return out
}

// Schema returns the field names shared by every record of kind.
func (t *Table) Schema(kind string) []string {
	rs := t.Records(kind)
	if len(rs) == 0 {
		return nil
	}
	return rs[0].Fields()
}

// Len returns the total record count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, rs := range t.records {
		n += len(rs)
	}
	return n
}
