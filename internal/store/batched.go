package store

import "sync"

// Batch buffers one index run in memory. Files get fake (negative) IDs so
// indexer goroutines can attach needles before anything touches SQLite;
// CommitBatch remaps them to real IDs.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type Batch struct {
	mu sync.Mutex

	Files   []File
	Needles []Needle
	Edges   []Edge

	nextFakeID int64 // starts at -1, decrements
}

func NewBatch() *Batch {
	return &Batch{nextFakeID: -1}
}

func (b *Batch) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// AddFile buffers f and its needles, returning the fake file ID.
func (b *Batch) AddFile(f *File, needles []Needle) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Files = append(b.Files, *f)
	for _, n := range needles {
		n.FileID = fakeID
		b.Needles = append(b.Needles, n)
	}
	return fakeID
}

// AddEdges buffers inheritance edges. Duplicates collapse at commit.
func (b *Batch) AddEdges(edges []Edge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Edges = append(b.Edges, edges...)
}

// Len reports the buffered file, needle and edge counts.
func (b *Batch) Len() (files, needles, edges int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Files), len(b.Needles), len(b.Edges)
}
