package store

// DataStore is the interface the inspection pipeline caches through. Both
// Store (direct SQLite) and BatchedStore (buffered writes for the parallel
// phase) implement it.
type DataStore interface {
	Lookup(path, contentHash, configHash string) (*Inspection, error)
	Put(in *Inspection) error
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
