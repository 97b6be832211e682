// Package boltkv runs Strata on go.etcd.io/bbolt.
//
// Tables are top-level buckets. bbolt has no nested transactions, so child
// transactions are kv.Overlay buffers over their parent.
package boltkv

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/kv"
	bolt "go.etcd.io/bbolt"
)

// Engine failure codes reported in kv.Failure.
const (
	CodeUnknown = iota
	CodeKeyRequired
	CodeKeyTooLarge
	CodeValueTooLarge
	CodeTimeout
)

// Options configures Open.
type Options struct {
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
	// NoSync skips fsync on commit.
	NoSync bool
	// FileMode for a newly created database file. Defaults to 0600.
	FileMode os.FileMode
}

// Env is a bbolt database.
type Env struct {
	db   *bolt.DB
	path string
}

var _ kv.Env = (*Env)(nil)

// Open opens or creates the database file at path.
func Open(path string, opts Options) (*Env, error) {
	if opts.FileMode == 0 {
		opts.FileMode = 0600
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	db, err := bolt.Open(path, opts.FileMode, &bolt.Options{Timeout: opts.Timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, errors.Wrapf(translate(err), "open file: %s", path)
	}
	return &Env{db: db, path: path}, nil
}

func (e *Env) Path() string    { return e.path }
func (e *Env) MaxKeySize() int { return bolt.MaxKeySize }
func (e *Env) Close() error    { return e.db.Close() }
func (e *Env) DB() *bolt.DB    { return e.db }

func (e *Env) Begin(parent kv.Txn, writable bool) (kv.Txn, error) {
	if parent != nil {
		return kv.NewOverlay(parent, writable)
	}
	tx, err := e.db.Begin(writable)
	if err != nil {
		return nil, translate(err)
	}
	return &txn{tx: tx}, nil
}

type txn struct {
	tx *bolt.Tx
}

func (t *txn) Writable() bool { return t.tx.Writable() }

func (t *txn) Table(name string) (kv.Table, error) {
	if t.tx.DB() == nil {
		return nil, kv.ErrTxDone
	}
	if !t.tx.Writable() {
		return &table{b: t.tx.Bucket([]byte(name))}, nil
	}
	b, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, errors.Wrapf(translate(err), "creating bucket: %s", name)
	}
	return &table{b: b}, nil
}

// Commit commits a writable transaction and releases a read-only one.
func (t *txn) Commit() error {
	if !t.tx.Writable() {
		return translate(t.tx.Rollback())
	}
	return translate(t.tx.Commit())
}

func (t *txn) Rollback() error {
	return translate(t.tx.Rollback())
}

// table wraps a bucket. A nil bucket is a table that does not exist yet,
// seen from a read-only transaction.
type table struct {
	b *bolt.Bucket
}

func (t *table) Get(key []byte) ([]byte, error) {
	if t.b == nil {
		return nil, kv.ErrNotFound
	}
	v := t.b.Get(key)
	if v == nil {
		return nil, kv.ErrNotFound
	}
	return v, nil
}

func (t *table) Put(key, value []byte) error {
	if t.b == nil {
		return kv.ErrReadOnly
	}
	// bbolt requires both slices to stay untouched until commit.
	k := append([]byte(nil), key...)
	v := append(make([]byte, 0, len(value)), value...)
	return translate(t.b.Put(k, v))
}

func (t *table) Delete(key []byte) error {
	if t.b == nil {
		return kv.ErrReadOnly
	}
	if !t.b.Tx().Writable() {
		return kv.ErrReadOnly
	}
	if t.b.Get(key) == nil {
		return kv.ErrNotFound
	}
	return translate(t.b.Delete(key))
}

func (t *table) Cursor() (kv.Cursor, error) {
	if t.b == nil {
		return emptyCursor{}, nil
	}
	return &cursor{c: t.b.Cursor()}, nil
}

func (t *table) Compare(a, b []byte) int { return bytes.Compare(a, b) }

type cursor struct {
	c *bolt.Cursor
}

func (c *cursor) Seek(key []byte) ([]byte, []byte) { return c.c.Seek(key) }
func (c *cursor) First() ([]byte, []byte)          { return c.c.First() }
func (c *cursor) Last() ([]byte, []byte)           { return c.c.Last() }
func (c *cursor) Next() ([]byte, []byte)           { return c.c.Next() }
func (c *cursor) Prev() ([]byte, []byte)           { return c.c.Prev() }
func (c *cursor) Err() error                       { return nil }
func (c *cursor) Close() error                     { return nil }

type emptyCursor struct{}

func (emptyCursor) Seek([]byte) ([]byte, []byte) { return nil, nil }
func (emptyCursor) First() ([]byte, []byte)      { return nil, nil }
func (emptyCursor) Last() ([]byte, []byte)       { return nil, nil }
func (emptyCursor) Next() ([]byte, []byte)       { return nil, nil }
func (emptyCursor) Prev() ([]byte, []byte)       { return nil, nil }
func (emptyCursor) Err() error                   { return nil }
func (emptyCursor) Close() error                 { return nil }

// translate maps bbolt errors onto the kv error set.
func translate(err error) error {
	switch err {
	case nil:
		return nil
	case bolt.ErrTxNotWritable, bolt.ErrDatabaseReadOnly:
		return kv.ErrReadOnly
	case bolt.ErrTxClosed:
		return kv.ErrTxDone
	case bolt.ErrKeyRequired:
		return &kv.Failure{Code: CodeKeyRequired, Message: err.Error()}
	case bolt.ErrKeyTooLarge:
		return &kv.Failure{Code: CodeKeyTooLarge, Message: err.Error()}
	case bolt.ErrValueTooLarge:
		return &kv.Failure{Code: CodeValueTooLarge, Message: err.Error()}
	case bolt.ErrTimeout:
		return &kv.Failure{Code: CodeTimeout, Message: err.Error()}
	}
	return &kv.Failure{Code: CodeUnknown, Message: err.Error()}
}
