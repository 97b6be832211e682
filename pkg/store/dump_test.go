package store_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpRestore(t *testing.T) {
	for name, open := range engines {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := store.New(open(t), store.Options{})
			require.NoError(t, src.Insert(ctx,
				Greeting{Key: "a", Value: "1"},
				Greeting{Key: "b", Value: "2"},
				Sample{A: "x", B: -3, V: "neg"},
			))

			path := filepath.Join(t.TempDir(), "backup", "strata.dump")
			n, err := src.Dump(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			for other, openDst := range engines {
				t.Run("into "+other, func(t *testing.T) {
					dst := store.New(openDst(t), store.Options{})
					n, err := dst.Restore(ctx, path)
					require.NoError(t, err)
					assert.Equal(t, 3, n)

					assert.Equal(t,
						[]Greeting{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}},
						find[Greeting](t, dst, query.All()))
					got, err := store.Get[Sample](ctx, dst, codec.NewTuple2(codec.String("x"), codec.Int(-3)))
					require.NoError(t, err)
					require.NotNil(t, got)
					assert.Equal(t, codec.String("neg"), got.V)
				})
			}
		})
	}
}

func TestFailedDumpKeepsPrevious(t *testing.T) {
	forEachEngine(t, func(t *testing.T, s *store.Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, Greeting{Key: "a", Value: "1"}))

		path := filepath.Join(t.TempDir(), "strata.dump")
		_, err := s.Dump(ctx, path)
		require.NoError(t, err)
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		require.NoError(t, s.Insert(ctx, Greeting{Key: "b", Value: "2"}))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = s.Dump(cancelled, path)
		assert.ErrorIs(t, err, context.Canceled)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDumpReaderCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.dump")
	w, err := store.CreateDump(path)
	require.NoError(t, err)
	off, err := w.Put([]byte("key1"), []byte("value1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
	off, err = w.Put([]byte("key2"), []byte("value2"))
	require.NoError(t, err)
	assert.Equal(t, int64(codec.FrameHeaderSize+10), off)
	assert.Equal(t, int64(2*(codec.FrameHeaderSize+10)), w.Size())
	assert.Equal(t, path, w.Path())
	require.NoError(t, w.Close())

	r, err := store.OpenDump(path)
	require.NoError(t, err)
	f, err := r.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, []byte("key1"), f.Key)
	assert.Equal(t, []byte("value1"), f.Value)
	f, err = r.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, []byte("key2"), f.Key)
	_, err = r.ReadNext()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())

	// flip a byte of the second value
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0600))

	r, err = store.OpenDump(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadNext()
	require.NoError(t, err)
	_, err = r.ReadNext()
	assert.ErrorIs(t, err, store.ErrCorruption)

	// truncated frame
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0600))
	r2, err := store.OpenDump(path)
	require.NoError(t, err)
	defer r2.Close()
	_, err = r2.ReadNext()
	require.NoError(t, err)
	_, err = r2.ReadNext()
	assert.ErrorIs(t, err, store.ErrCorruption)
}

func TestRestoreIsAtomic(t *testing.T) {
	for name, open := range engines {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := store.New(open(t), store.Options{})

			path := filepath.Join(t.TempDir(), "bad.dump")
			w, err := store.CreateDump(path)
			require.NoError(t, err)
			_, err = w.Put([]byte("k"), []byte("v"))
			require.NoError(t, err)
			require.NoError(t, w.Close())
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, append(data, data[:5]...), 0600))

			_, err = s.Restore(ctx, path)
			assert.ErrorIs(t, err, store.ErrCorruption)

			st, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, st.Entries)
		})
	}
}
