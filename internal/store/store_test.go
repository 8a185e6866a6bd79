package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleSettings struct {
	Position []float64 `json:"position"`
	Scale    float64   `json:"scannerScale"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "cfg")),
		"sqlite": db,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			in := sampleSettings{Position: []float64{1, 2, 3}, Scale: 0.5}
			require.NoError(t, s.Save("color_samples", in))

			var out sampleSettings
			require.NoError(t, s.Load("color_samples", &out))
			assert.Equal(t, in, out)

			in.Scale = 0.25
			require.NoError(t, s.Save("color_samples", in))
			require.NoError(t, s.Load("color_samples", &out))
			assert.Equal(t, 0.25, out.Scale, "save replaces")
		})
	}
}

func TestStoreMissingKey(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var out sampleSettings
			assert.ErrorIs(t, s.Load("keystone", &out), ErrNotFound)
		})
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	t.Parallel()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Save("../escape", 1))
			assert.Error(t, s.Load("", new(int)))
		})
	}
}

func TestFileStoreEmptyFileIsMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFileStore(dir)
	require.NoError(t, os.WriteFile(s.Path("keystone"), nil, 0o644))
	assert.ErrorIs(t, s.Load("keystone", new(int)), ErrNotFound)
}

func TestSQLiteHistory(t *testing.T) {
	t.Parallel()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	base := time.Unix(1700000000, 0)
	require.NoError(t, db.AppendHistory("a", 1, base, []int{0, -1}))
	require.NoError(t, db.AppendHistory("b", 2, base.Add(time.Second), []int{3, 3}))

	entries, err := db.RecentHistory(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ResultID)
	assert.Equal(t, int64(2), entries[0].Cycle)

	var ids []int
	require.NoError(t, json.Unmarshal(entries[1].Payload, &ids))
	assert.Equal(t, []int{0, -1}, ids)

	entries, err = db.RecentHistory(1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
