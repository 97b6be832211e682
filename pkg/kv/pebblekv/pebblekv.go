// Package pebblekv runs Strata on github.com/cockroachdb/pebble.
//
// Tables are key ranges: every key of table t is stored as t + 0x00 + key.
// A writable transaction is an indexed batch, which reads its own writes, and
// only one may be open at a time. A read-only transaction is a snapshot.
// Nested transactions are kv.Overlay buffers over their parent.
package pebblekv

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/kv"
	"github.com/ssargent/strata/pkg/logger"
)

// DefaultMaxKeySize bounds encoded keys. Pebble itself has no hard limit.
const DefaultMaxKeySize = 4096

// Failure codes reported in kv.Failure.
const (
	CodeUnknown = iota
	CodeInvalidTable
	CodeKeyTooLarge
	CodeClosed
)

// Options configures Open.
type Options struct {
	// NoSync commits batches without waiting for the WAL to sync.
	NoSync bool
	// MaxKeySize defaults to DefaultMaxKeySize.
	MaxKeySize int
	// Logger receives pebble's own log output.
	Logger logger.Logger
}

// Env is a pebble database.
type Env struct {
	db      *pebble.DB
	path    string
	maxKey  int
	sync    *pebble.WriteOptions
	writeMu sync.Mutex
}

var _ kv.Env = (*Env)(nil)

// Open opens or creates a pebble database in dir.
func Open(dir string, opts Options) (*Env, error) {
	if opts.MaxKeySize <= 0 {
		opts.MaxKeySize = DefaultMaxKeySize
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger
	}
	db, err := pebble.Open(dir, &pebble.Options{
		Logger: pebbleLogger{opts.Logger},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble: %s", dir)
	}
	wo := pebble.Sync
	if opts.NoSync {
		wo = pebble.NoSync
	}
	return &Env{db: db, path: dir, maxKey: opts.MaxKeySize, sync: wo}, nil
}

func (e *Env) Path() string    { return e.path }
func (e *Env) MaxKeySize() int { return e.maxKey }
func (e *Env) Close() error    { return e.db.Close() }

// Metrics exposes pebble's internal metrics.
func (e *Env) Metrics() *pebble.Metrics { return e.db.Metrics() }

func (e *Env) Begin(parent kv.Txn, writable bool) (kv.Txn, error) {
	if parent != nil {
		return kv.NewOverlay(parent, writable)
	}
	if !writable {
		return &txn{env: e, reader: e.db.NewSnapshot()}, nil
	}
	e.writeMu.Lock()
	b := e.db.NewIndexedBatch()
	return &txn{env: e, batch: b, reader: b, writable: true}, nil
}

// reader is the read side shared by *pebble.Batch and *pebble.Snapshot.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
	Close() error
}

type txn struct {
	env      *Env
	batch    *pebble.Batch
	reader   reader
	writable bool
	done     bool
}

func (t *txn) Writable() bool { return t.writable }

func (t *txn) Table(name string) (kv.Table, error) {
	if t.done {
		return nil, kv.ErrTxDone
	}
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return nil, &kv.Failure{Code: CodeInvalidTable, Message: "invalid table name " + strconv.Quote(name)}
	}
	prefix := append([]byte(name), 0)
	upper := append([]byte(name), 1)
	return &table{txn: t, prefix: prefix, upper: upper}, nil
}

func (t *txn) Commit() error {
	if t.done {
		return kv.ErrTxDone
	}
	t.done = true
	if !t.writable {
		return t.reader.Close()
	}
	defer t.env.writeMu.Unlock()
	if err := t.batch.Commit(t.env.sync); err != nil {
		t.batch.Close()
		return &kv.Failure{Code: CodeUnknown, Message: err.Error()}
	}
	return t.batch.Close()
}

func (t *txn) Rollback() error {
	if t.done {
		return kv.ErrTxDone
	}
	t.done = true
	if t.writable {
		defer t.env.writeMu.Unlock()
	}
	return t.reader.Close()
}

type table struct {
	txn    *txn
	prefix []byte
	upper  []byte
}

func (t *table) key(k []byte) []byte {
	out := make([]byte, 0, len(t.prefix)+len(k))
	return append(append(out, t.prefix...), k...)
}

func (t *table) Get(key []byte) ([]byte, error) {
	if t.txn.done {
		return nil, kv.ErrTxDone
	}
	v, closer, err := t.txn.reader.Get(t.key(key))
	if err == pebble.ErrNotFound {
		return nil, kv.ErrNotFound
	} else if err != nil {
		return nil, translate(err)
	}
	out := append([]byte(nil), v...)
	return out, closer.Close()
}

func (t *table) Put(key, value []byte) error {
	if t.txn.done {
		return kv.ErrTxDone
	}
	if !t.txn.writable {
		return kv.ErrReadOnly
	}
	if len(key) > t.txn.env.maxKey {
		return &kv.Failure{Code: CodeKeyTooLarge, Message: "key too large"}
	}
	return translate(t.txn.batch.Set(t.key(key), value, nil))
}

func (t *table) Delete(key []byte) error {
	if !t.txn.writable {
		return kv.ErrReadOnly
	}
	if _, err := t.Get(key); err != nil {
		return err
	}
	return translate(t.txn.batch.Delete(t.key(key), nil))
}

func (t *table) Cursor() (kv.Cursor, error) {
	if t.txn.done {
		return nil, kv.ErrTxDone
	}
	it, err := t.txn.reader.NewIter(&pebble.IterOptions{
		LowerBound: t.prefix,
		UpperBound: t.upper,
	})
	if err != nil {
		return nil, translate(err)
	}
	return &cursor{it: it, prefix: t.prefix}, nil
}

func (t *table) Compare(a, b []byte) int { return bytes.Compare(a, b) }

// cursor strips the table prefix from the keys it returns.
type cursor struct {
	it     *pebble.Iterator
	prefix []byte
	seek   []byte
}

func (c *cursor) at(ok bool) ([]byte, []byte) {
	if !ok {
		return nil, nil
	}
	return c.it.Key()[len(c.prefix):], c.it.Value()
}

func (c *cursor) Seek(key []byte) ([]byte, []byte) {
	c.seek = append(append(c.seek[:0], c.prefix...), key...)
	return c.at(c.it.SeekGE(c.seek))
}

func (c *cursor) First() ([]byte, []byte) { return c.at(c.it.First()) }
func (c *cursor) Last() ([]byte, []byte)  { return c.at(c.it.Last()) }
func (c *cursor) Next() ([]byte, []byte)  { return c.at(c.it.Next()) }
func (c *cursor) Prev() ([]byte, []byte)  { return c.at(c.it.Prev()) }
func (c *cursor) Err() error              { return translate(c.it.Error()) }
func (c *cursor) Close() error            { return translate(c.it.Close()) }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pebble.ErrNotFound):
		return kv.ErrNotFound
	case errors.Is(err, pebble.ErrClosed):
		return &kv.Failure{Code: CodeClosed, Message: err.Error()}
	}
	return &kv.Failure{Code: CodeUnknown, Message: err.Error()}
}

// pebbleLogger adapts a Logger to pebble's logging hook.
type pebbleLogger struct {
	l logger.Logger
}

func (p pebbleLogger) Infof(format string, args ...interface{})  { p.l.Debugf(format, args...) }
func (p pebbleLogger) Errorf(format string, args ...interface{}) { p.l.Errorf(format, args...) }
func (p pebbleLogger) Fatalf(format string, args ...interface{}) {
	p.l.Errorf(format, args...)
	panic(errors.Errorf(format, args...))
}
