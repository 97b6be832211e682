// Package store runs typed record transactions against a kv.Env.
//
// A Store owns one set of key and value scratch buffers and serializes the
// transactions that use them. A BackgroundStore runs transactions on a pool
// of workers, each with its own buffers. Both hand a *Tx to the caller's
// function; records are written with Tx.Insert and Tx.Delete and read with
// Select, SelectQuery and their Store-level wrappers Get and Find.
//
// Writers are serialized by the engine in every case. Update checks the
// context after the transaction function returns and rolls back instead of
// committing when it has been cancelled.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/config"
	"github.com/ssargent/strata/pkg/kv"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
	"github.com/ssargent/strata/pkg/record"
)

// DefaultTable is the table records are stored in when Options.Table is empty.
const DefaultTable = "records"

// Options configures a Store or BackgroundStore.
type Options struct {
	// Table is the engine table holding every record type.
	Table string
	// MinValueSize is the size of the value scratch buffer. Defaults to
	// config.DefaultMinValueSize.
	MinValueSize int
	Logger       logger.Logger
	Metrics      *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.MinValueSize <= 0 {
		o.MinValueSize = config.DefaultMinValueSize
	}
	if o.Logger == nil {
		o.Logger = logger.NopLogger
	}
	return o
}

// Buffers are the scratch space records are encoded into before being handed
// to the engine. The engine copies what it stores, so one set is reused by
// every operation of the transactions that own it.
type Buffers struct {
	Key   []byte
	Value []byte
}

// NewBuffers allocates a key buffer of keySize bytes and a value buffer of
// valueSize bytes.
func NewBuffers(keySize, valueSize int) *Buffers {
	return &Buffers{Key: make([]byte, keySize), Value: make([]byte, valueSize)}
}

// Transactor runs transactions. *Store and *BackgroundStore implement it.
type Transactor interface {
	// Update runs fn in a writable transaction and commits when fn returns
	// nil and ctx has not been cancelled.
	Update(ctx context.Context, fn func(tx *Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx *Tx) error) error
}

// backend is what Store and BackgroundStore share: the environment and the
// ambient stack.
type backend struct {
	env     kv.Env
	table   string
	valSize int
	log     logger.Logger
	metrics *metrics.Metrics
}

func newBackend(env kv.Env, opts Options) *backend {
	opts = opts.withDefaults()
	return &backend{
		env:     env,
		table:   opts.Table,
		valSize: opts.MinValueSize,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

func (b *backend) newBuffers() *Buffers {
	return NewBuffers(b.env.MaxKeySize(), b.valSize)
}

// begin starts a top-level transaction. release runs once the transaction
// has ended.
func (b *backend) begin(ctx context.Context, buf *Buffers, writable bool, release func()) (*Tx, error) {
	txn, err := b.env.Begin(nil, writable)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	tbl, err := txn.Table(b.table)
	if err != nil {
		_ = txn.Rollback()
		return nil, errors.Wrapf(err, "open table %s", b.table)
	}
	tx := &Tx{backend: b, txn: txn, tbl: tbl, buf: buf, release: release}
	tx.ctx = context.WithValue(ctx, txKey, tx)
	return tx, nil
}

// run executes fn in a transaction using buf. Writable transactions commit
// when fn succeeds and ctx is still live; everything else rolls back.
func (b *backend) run(ctx context.Context, buf *Buffers, writable bool, fn func(tx *Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := b.begin(ctx, buf, writable, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if !writable {
		return tx.Rollback()
	}
	// Commit checks ctx once more and rolls back if it was cancelled.
	return tx.Commit()
}

// Store runs transactions on the caller's goroutine, one at a time, sharing
// a single set of scratch buffers.
type Store struct {
	*backend
	mu     sync.Mutex
	buf    *Buffers
	closer func() error
}

var _ Transactor = (*Store)(nil)

// New creates a Store over env. The caller keeps ownership of env.
func New(env kv.Env, opts Options) *Store {
	b := newBackend(env, opts)
	return &Store{backend: b, buf: b.newBuffers()}
}

// Env returns the environment the store runs on.
func (s *Store) Env() kv.Env { return s.env }

// Close releases the environment if the store was opened with Open.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Update runs fn in a writable transaction. The transaction commits when fn
// returns nil; it rolls back when fn fails, panics, or ctx is done by the
// time fn returns, in which case the context's error is returned.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, s.buf, true, fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, s.buf, false, fn)
}

// Begin starts a top-level transaction managed by the caller, who must end
// it with Commit or Rollback. The store is held until then.
func (s *Store) Begin(ctx context.Context, writable bool) (*Tx, error) {
	s.mu.Lock()
	tx, err := s.begin(ctx, s.buf, writable, s.mu.Unlock)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return tx, nil
}

// Insert writes records in a single transaction.
func (s *Store) Insert(ctx context.Context, records ...record.Record) error {
	return s.Update(ctx, func(tx *Tx) error { return tx.Insert(records...) })
}

// Delete removes records in a single transaction.
func (s *Store) Delete(ctx context.Context, records ...record.Record) error {
	return s.Update(ctx, func(tx *Tx) error { return tx.Delete(records...) })
}

func (b *backend) observe(op string, start time.Time, err error) {
	b.metrics.RecordOperation(op, err, time.Since(start))
}
