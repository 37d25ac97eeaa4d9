package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOffenses() []cop.Offense {
	return []cop.Offense{
		{
			Rule:     "Performance/RedundantMatch",
			Message:  "Use `=~`.",
			Range:    ast.Range{Start: 16, End: 34},
			Location: ast.Position{Line: 1, Column: 17},
			Severity: cop.Convention,
			Status:   cop.Uncorrected,
		},
		{
			Rule:     "Lint/BinaryOperatorWithIdenticalOperands",
			Message:  "Binary operator `==` has identical operands.",
			Range:    ast.Range{Start: 40, End: 46},
			Location: ast.Position{Line: 3, Column: 1},
			Severity: cop.Warning,
			Status:   cop.Unsupported,
		},
	}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_TableExists(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", "inspections",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "inspections", name)
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestNewStore_BadPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	require.Error(t, err)
}

// =============================================================================
// Payload
// =============================================================================

func TestEncodeOffenses_PreservesFields(t *testing.T) {
	t.Parallel()
	want := sampleOffenses()
	b, err := EncodeOffenses(want)
	require.NoError(t, err)

	got, err := DecodeOffenses(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeOffenses_Garbage(t *testing.T) {
	t.Parallel()
	_, err := DecodeOffenses([]byte{0xc1})
	require.Error(t, err)
}

// =============================================================================
// Lookup / Put
// =============================================================================

func TestLookup_HitAndMiss(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Put(&Inspection{
		Path: "app/a.rb", ContentHash: "c1", ConfigHash: "k1",
		Offenses: sampleOffenses(), InspectedAt: at,
	}))

	got, err := s.Lookup("app/a.rb", "c1", "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleOffenses(), got.Offenses)
	assert.True(t, at.Equal(got.InspectedAt))

	tests := []struct {
		name                  string
		path, content, config string
	}{
		{"unknown path", "app/b.rb", "c1", "k1"},
		{"content changed", "app/a.rb", "c2", "k1"},
		{"config changed", "app/a.rb", "c1", "k2"},
	}
	for _, tt := range tests {
		got, err := s.Lookup(tt.path, tt.content, tt.config)
		require.NoError(t, err, tt.name)
		assert.Nil(t, got, tt.name)
	}
}

func TestPut_Replaces(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Put(&Inspection{Path: "a.rb", ContentHash: "c1", ConfigHash: "k", Offenses: sampleOffenses()}))
	require.NoError(t, s.Put(&Inspection{Path: "a.rb", ContentHash: "c2", ConfigHash: "k"}))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Lookup("a.rb", "c2", "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Offenses)
}

func TestForget(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for i := range 3 {
		require.NoError(t, s.Put(&Inspection{Path: fmt.Sprintf("%d.rb", i), ContentHash: "c", ConfigHash: "k"}))
	}
	require.NoError(t, s.Forget("0.rb", "2.rb", "missing.rb"))
	require.NoError(t, s.Forget())

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPruneConfig(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Put(&Inspection{Path: "a.rb", ContentHash: "c", ConfigHash: "old"}))
	require.NoError(t, s.Put(&Inspection{Path: "b.rb", ContentHash: "c", ConfigHash: "new"}))

	removed, err := s.PruneConfig("new")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestHashContent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, HashContent([]byte("x = 1\n")), HashContent([]byte("x = 1\n")))
	assert.NotEqual(t, HashContent([]byte("x = 1\n")), HashContent([]byte("x = 2\n")))
	assert.Len(t, HashContent(nil), 64)
}

func TestChunkStrings(t *testing.T) {
	t.Parallel()
	assert.Nil(t, chunkStrings(nil, 2))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunkStrings([]string{"a", "b", "c"}, 2))
	assert.Equal(t, "?,?,?", placeholderList(3))
	assert.Equal(t, "", placeholderList(0))
}
