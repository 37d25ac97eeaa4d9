package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/copper/internal/cop"
)

// EncodeOffenses serializes offenses to the cache's msgpack payload.
func EncodeOffenses(offs []cop.Offense) ([]byte, error) {
	recs := make([]record, len(offs))
	for i, o := range offs {
		recs[i] = toRecord(o)
	}
	b, err := msgpack.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode offenses: %w", err)
	}
	return b, nil
}

// DecodeOffenses is the inverse of EncodeOffenses.
func DecodeOffenses(b []byte) ([]cop.Offense, error) {
	var recs []record
	if err := msgpack.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode offenses: %w", err)
	}
	offs := make([]cop.Offense, len(recs))
	for i, r := range recs {
		offs[i] = r.offense()
	}
	return offs, nil
}

// Lookup returns the cached inspection of path when both hashes still
// match, or nil on a miss.
func (s *Store) Lookup(path, contentHash, configHash string) (*Inspection, error) {
	in := &Inspection{Path: path}
	var payload []byte
	var at sql.NullTime
	err := s.db.QueryRow(
		"SELECT content_hash, config_hash, offenses, inspected_at FROM inspections WHERE path = ?", path,
	).Scan(&in.ContentHash, &in.ConfigHash, &payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup inspection: %w", err)
	}
	if in.ContentHash != contentHash || in.ConfigHash != configHash {
		return nil, nil
	}
	if in.Offenses, err = DecodeOffenses(payload); err != nil {
		return nil, fmt.Errorf("lookup inspection %s: %w", path, err)
	}
	in.InspectedAt = at.Time
	return in, nil
}

// Put records an inspection, replacing any earlier result for its path.
func (s *Store) Put(in *Inspection) error {
	return putTx(s.db, in)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putTx(db execer, in *Inspection) error {
	payload, err := EncodeOffenses(in.Offenses)
	if err != nil {
		return err
	}
	if in.InspectedAt.IsZero() {
		in.InspectedAt = time.Now().UTC()
	}
	_, err = db.Exec(
		`INSERT INTO inspections (path, content_hash, config_hash, offenses, inspected_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   config_hash = excluded.config_hash,
		   offenses = excluded.offenses,
		   inspected_at = excluded.inspected_at`,
		in.Path, in.ContentHash, in.ConfigHash, payload, in.InspectedAt,
	)
	if err != nil {
		return fmt.Errorf("put inspection %s: %w", in.Path, err)
	}
	return nil
}

// Count returns the number of cached files.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM inspections").Scan(&n); err != nil {
		return 0, fmt.Errorf("count inspections: %w", err)
	}
	return n, nil
}
