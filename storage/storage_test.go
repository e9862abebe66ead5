package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

type storedRecord struct {
	Name   string
	Amount string
	Height uint64
}

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"mem":   NewMemDB(),
		"level": level,
		"bolt":  bolt,
	}
}

func TestDatabaseBackends(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, db.Put([]byte("a/2"), []byte("two")))
			require.NoError(t, db.Put([]byte("a/1"), []byte("one")))
			require.NoError(t, db.Put([]byte("b/1"), []byte("other")))

			value, err := db.Get([]byte("a/1"))
			require.NoError(t, err)
			require.Equal(t, []byte("one"), value)

			var keys []string
			require.NoError(t, db.Iterate([]byte("a/"), func(key, _ []byte) bool {
				keys = append(keys, string(key))
				return true
			}))
			require.Equal(t, []string{"a/1", "a/2"}, keys)

			require.NoError(t, db.Delete([]byte("a/1")))
			_, err = db.Get([]byte("a/1"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(NewMemDB())
	in := storedRecord{Name: "wrapper", Amount: "1000000", Height: 42}
	require.NoError(t, store.KVPut([]byte("record"), in))

	var out storedRecord
	ok, err := store.KVGet([]byte("record"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)

	ok, err = store.KVGet([]byte("absent"), &out)
	require.NoError(t, err)
	require.False(t, ok)

	require.Error(t, store.KVPut(nil, in))
}

func TestStoreIterateSuffixes(t *testing.T) {
	store := NewStore(NewMemDB())
	require.NoError(t, store.KVPut([]byte("bal/bob"), "2"))
	require.NoError(t, store.KVPut([]byte("bal/alice"), "1"))

	var got []string
	err := store.KVIterate([]byte("bal/"), func(suffix []byte, decode func(interface{}) error) bool {
		var amount string
		require.NoError(t, decode(&amount))
		got = append(got, string(suffix)+"="+amount)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alice=1", "bob=2"}, got)
}

func TestCacheIsolatesUntilWrite(t *testing.T) {
	parent := NewMemDB()
	require.NoError(t, parent.Put([]byte("k/keep"), []byte("1")))
	require.NoError(t, parent.Put([]byte("k/drop"), []byte("2")))

	cache := NewCache(parent)
	require.NoError(t, cache.Put([]byte("k/new"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("k/drop")))

	_, err := parent.Get([]byte("k/new"))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = cache.Get([]byte("k/drop"))
	require.ErrorIs(t, err, ErrNotFound)

	var keys []string
	require.NoError(t, cache.Iterate([]byte("k/"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	require.Equal(t, []string{"k/keep", "k/new"}, keys)

	require.NoError(t, cache.Write())
	value, err := parent.Get([]byte("k/new"))
	require.NoError(t, err)
	require.Equal(t, []byte("3"), value)
	_, err = parent.Get([]byte("k/drop"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheDiscard(t *testing.T) {
	parent := NewMemDB()
	cache := NewCache(parent)
	require.NoError(t, cache.Put([]byte("k"), []byte("v")))
	cache.Discard()
	_, err := cache.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, cache.Write())
	_, err = parent.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheWriteIsAtomic(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Put([]byte("k/drop"), []byte("1")))

	cache := NewCache(db)
	require.NoError(t, cache.Delete([]byte("k/drop")))
	require.NoError(t, cache.Put([]byte("a"), []byte("2")))
	require.NoError(t, cache.Put(bytes.Repeat([]byte("z"), bolt.MaxKeySize+1), []byte("3")))
	require.Error(t, cache.Write())

	value, err := db.Get([]byte("k/drop"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)
	_, err = db.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheWriteBatchesEveryBackend(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("b/old"), []byte("x")))
			cache := NewCache(db)
			require.NoError(t, cache.Put([]byte("b/new"), []byte("y")))
			require.NoError(t, cache.Delete([]byte("b/old")))
			require.NoError(t, cache.Write())

			value, err := db.Get([]byte("b/new"))
			require.NoError(t, err)
			require.Equal(t, []byte("y"), value)
			_, err = db.Get([]byte("b/old"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}
