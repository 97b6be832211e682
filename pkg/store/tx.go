package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/cursor"
	"github.com/ssargent/strata/pkg/kv"
	"github.com/ssargent/strata/pkg/metrics"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/record"
)

// Tx is a transaction context: one live engine transaction plus the scratch
// buffers of the store that started it. A Tx must stay on the goroutine that
// received it and must not be used after it ends. While a nested transaction
// is open its parent must not be used.
type Tx struct {
	*backend
	ctx     context.Context
	txn     kv.Txn
	tbl     kv.Table
	buf     *Buffers
	parent  *Tx
	release func()
	done    bool
}

// Context returns the context the transaction runs under. TxFromContext
// recovers the Tx from it.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Writable reports whether the transaction may write.
func (tx *Tx) Writable() bool { return tx.txn.Writable() }

// Parent returns the enclosing transaction, or nil for a top-level one.
func (tx *Tx) Parent() *Tx { return tx.parent }

// Commit commits the transaction. A nested transaction commits into its
// parent. A top-level writable transaction whose context has been cancelled
// rolls back instead and returns the context error.
func (tx *Tx) Commit() error {
	if tx.done {
		return kv.ErrTxDone
	}
	if tx.parent == nil && tx.Writable() {
		if err := tx.ctx.Err(); err != nil {
			tx.log.Debugf("transaction cancelled before commit: %v", err)
			_ = tx.end(metrics.OutcomeCancelled)
			return errors.Wrap(err, "commit")
		}
	}
	err := tx.txn.Commit()
	if err != nil {
		tx.finish(metrics.OutcomeRollback)
		return errors.Wrap(err, "commit")
	}
	tx.finish(metrics.OutcomeCommit)
	return nil
}

// Rollback discards the transaction's writes. Rolling back an ended
// transaction returns kv.ErrTxDone.
func (tx *Tx) Rollback() error {
	if tx.done {
		return kv.ErrTxDone
	}
	return tx.end(metrics.OutcomeRollback)
}

func (tx *Tx) end(outcome string) error {
	err := tx.txn.Rollback()
	tx.finish(outcome)
	return err
}

func (tx *Tx) finish(outcome string) {
	tx.done = true
	if tx.parent == nil {
		tx.metrics.RecordTransaction(tx.Writable(), outcome)
	}
	if tx.release != nil {
		tx.release()
		tx.release = nil
	}
}

// Begin starts a transaction nested in tx. It sees tx's uncommitted writes
// and its own writes reach tx only when it commits. A writable child needs a
// writable parent.
func (tx *Tx) Begin(writable bool) (*Tx, error) {
	if tx.done {
		return nil, kv.ErrTxDone
	}
	txn, err := tx.env.Begin(tx.txn, writable)
	if err != nil {
		return nil, errors.Wrap(err, "begin nested transaction")
	}
	tbl, err := txn.Table(tx.table)
	if err != nil {
		_ = txn.Rollback()
		return nil, errors.Wrapf(err, "open table %s", tx.table)
	}
	child := &Tx{backend: tx.backend, txn: txn, tbl: tbl, buf: tx.buf, parent: tx}
	child.ctx = context.WithValue(tx.ctx, txKey, child)
	return child, nil
}

// Nested runs fn in a child transaction with tx's writability. The child
// commits into tx when fn returns nil and rolls back otherwise.
func (tx *Tx) Nested(fn func(tx *Tx) error) error {
	child, err := tx.Begin(tx.Writable())
	if err != nil {
		return err
	}
	if err := fn(child); err != nil {
		_ = child.Rollback()
		return err
	}
	if !child.Writable() {
		return child.Rollback()
	}
	return child.Commit()
}

// Insert writes each record, replacing any record stored under the same key.
func (tx *Tx) Insert(records ...record.Record) error {
	for _, r := range records {
		start := time.Now()
		err := tx.insert(r)
		tx.observe("insert", start, err)
		if err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) insert(r record.Record) error {
	key, err := tx.encodeKey(r.KeyPrefix(), r.IndexKey())
	if err != nil {
		return err
	}

	fields := r.Fields()
	size := record.PrefixSize + fields.SerializedSize()
	if size > len(tx.buf.Value) {
		return errors.Wrapf(ErrValueBufferOverflow, "%s needs %d bytes, buffer holds %d",
			record.TypeName(r), size, len(tx.buf.Value))
	}
	ve := codec.NewEncoder(tx.buf.Value[:size])
	ve.PutUint32(r.FieldsVersion())
	ve.Put(fields)
	if err := ve.Err(); err != nil {
		return errors.Wrapf(err, "encoding %s", record.TypeName(r))
	}
	return tx.tbl.Put(key, ve.Bytes())
}

// encodeKey writes prefix ++ key into the key buffer. The result is only
// valid until the next use of the buffer.
func (tx *Tx) encodeKey(prefix uint32, key codec.Value) ([]byte, error) {
	size := record.PrefixSize + key.SerializedSize()
	if size > len(tx.buf.Key) {
		return nil, errors.Wrapf(ErrKeyBufferOverflow, "key needs %d bytes, buffer holds %d", size, len(tx.buf.Key))
	}
	ke := codec.NewEncoder(tx.buf.Key[:size])
	record.KeyFor(ke, prefix, key)
	if err := ke.Err(); err != nil {
		return nil, errors.Wrap(err, "encoding key")
	}
	return ke.Bytes(), nil
}

// Delete removes each record's key. Keys that are not stored are ignored.
func (tx *Tx) Delete(records ...record.Record) error {
	for _, r := range records {
		if err := tx.deleteKey(r.KeyPrefix(), r.IndexKey()); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) deleteKey(prefix uint32, key codec.Value) (err error) {
	defer func(start time.Time) { tx.observe("delete", start, err) }(time.Now())
	k, err := tx.encodeKey(prefix, key)
	if err != nil {
		return err
	}
	if err := tx.tbl.Delete(k); err != nil && !kv.IsNotFound(err) {
		return err
	}
	return nil
}

// rewrite replaces the entry stored under oldKey with r, for records read
// through a migration. Read-only transactions leave storage untouched.
func (tx *Tx) rewrite(oldKey []byte, r record.Record) error {
	name := record.TypeName(r)
	if !tx.Writable() {
		tx.log.Debugf("migrated %s in read-only transaction, not rewriting", name)
		return nil
	}
	if err := tx.tbl.Delete(oldKey); err != nil && !kv.IsNotFound(err) {
		return errors.Wrapf(err, "removing pre-migration %s", name)
	}
	if err := tx.insert(r); err != nil {
		return errors.Wrapf(err, "rewriting migrated %s", name)
	}
	tx.metrics.RecordMigration(name)
	return nil
}

// Select reads the R stored under key, or returns nil when there is none.
// An entry written under an older fields version is migrated and, in a
// writable transaction, rewritten in place before Select returns.
func Select[R any, PR interface {
	*R
	record.Decodable
}](tx *Tx, key codec.Value) (_ *R, err error) {
	defer func(start time.Time) { tx.observe("select", start, err) }(time.Now())

	var r R
	pr := PR(&r)
	k, err := tx.encodeKey(pr.KeyPrefix(), key)
	if err != nil {
		return nil, err
	}
	v, err := tx.tbl.Get(k)
	if kv.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	migrated, err := record.Load(pr, k, v)
	if err != nil {
		return nil, err
	}
	if migrated {
		if err := tx.rewrite(k, pr); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// SelectQuery returns the Rs matching q, in key order for forward scans and
// reverse key order for backward ones.
func SelectQuery[R any, PR interface {
	*R
	record.Decodable
}](tx *Tx, q query.Query) (_ []R, err error) {
	defer func(start time.Time) { tx.observe("query", start, err) }(time.Now())

	var zero R
	plan, err := q.Plan(PR(&zero).KeyPrefix())
	if err != nil {
		return nil, err
	}
	if plan.IsLookup() {
		return lookup[R, PR](tx, plan)
	}
	return scan[R, PR](tx, plan)
}

func lookup[R any, PR interface {
	*R
	record.Decodable
}](tx *Tx, plan query.Plan) ([]R, error) {
	var out []R
	for _, k := range plan.Lookups {
		if plan.Limit > 0 && len(out) == plan.Limit {
			break
		}
		v, err := tx.tbl.Get(k)
		if kv.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var r R
		migrated, err := record.Load(PR(&r), k, v)
		if err != nil {
			return nil, err
		}
		if migrated {
			if err := tx.rewrite(k, PR(&r)); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

type pending struct {
	key []byte
	idx int
}

func scan[R any, PR interface {
	*R
	record.Decodable
}](tx *Tx, plan query.Plan) ([]R, error) {
	c, err := cursor.Open(tx.tbl, *plan.Scan)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var (
		out      []R
		migrated []pending
	)
	for c.Next() {
		var r R
		m, err := record.Load(PR(&r), c.Key(), c.Value())
		if errors.Is(err, record.ErrPrefixMismatch) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		if m {
			migrated = append(migrated, pending{key: append([]byte(nil), c.Key()...), idx: len(out) - 1})
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	if err := c.Close(); err != nil {
		return nil, err
	}

	for _, p := range migrated {
		if err := tx.rewrite(p.key, PR(&out[p.idx])); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteKey removes the R stored under key. A missing key is not an error.
func DeleteKey[R any, PR interface {
	*R
	record.Record
}](tx *Tx, key codec.Value) error {
	var r R
	return tx.deleteKey(PR(&r).KeyPrefix(), key)
}
