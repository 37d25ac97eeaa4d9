package store

import "fmt"

// CommitBatch writes every buffered inspection in a single transaction
// and empties the batch. Later entries for the same path win.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Inspections {
		if err := putTx(tx, &batch.Inspections[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	batch.Inspections = nil
	return nil
}
