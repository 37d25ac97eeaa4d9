package store

import "sync"

// BatchedStore buffers Put calls in memory so parallel workers never
// write to SQLite. Lookups pass through to the underlying Store, which
// is safe for concurrent reads. CommitBatch flushes the buffer.
type BatchedStore struct {
	store *Store
	mu    sync.Mutex

	Inspections []Inspection
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by s.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{store: s}
}

// Lookup consults buffered results first, then the database.
func (b *BatchedStore) Lookup(path, contentHash, configHash string) (*Inspection, error) {
	b.mu.Lock()
	for i := len(b.Inspections) - 1; i >= 0; i-- {
		in := b.Inspections[i]
		if in.Path != path {
			continue
		}
		b.mu.Unlock()
		if in.ContentHash != contentHash || in.ConfigHash != configHash {
			return nil, nil
		}
		return &in, nil
	}
	b.mu.Unlock()
	return b.store.Lookup(path, contentHash, configHash)
}

// Put buffers in until the next CommitBatch.
func (b *BatchedStore) Put(in *Inspection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Inspections = append(b.Inspections, *in)
	return nil
}

// Len returns the number of buffered inspections.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Inspections)
}
