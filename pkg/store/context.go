package store

import (
	"context"

	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/record"
)

type contextKey int

const (
	storeKey contextKey = iota
	txKey
)

// WithStore returns a copy of ctx carrying t.
func WithStore(ctx context.Context, t Transactor) context.Context {
	return context.WithValue(ctx, storeKey, t)
}

// FromContext returns the Transactor attached with WithStore.
func FromContext(ctx context.Context) (Transactor, error) {
	t, ok := ctx.Value(storeKey).(Transactor)
	if !ok || t == nil {
		return nil, ErrNoActiveStore
	}
	return t, nil
}

// TxFromContext returns the transaction whose Context is ctx or one of its
// descendants.
func TxFromContext(ctx context.Context) (*Tx, error) {
	tx, ok := ctx.Value(txKey).(*Tx)
	if !ok || tx == nil || tx.done {
		return nil, ErrNoActiveContext
	}
	return tx, nil
}

// Get reads the R stored under key in its own writable transaction, so that a
// migrated entry is rewritten. It returns nil when there is none.
func Get[R any, PR interface {
	*R
	record.Decodable
}](ctx context.Context, t Transactor, key codec.Value) (*R, error) {
	var out *R
	err := t.Update(ctx, func(tx *Tx) error {
		var err error
		out, err = Select[R, PR](tx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find runs q in its own writable transaction.
func Find[R any, PR interface {
	*R
	record.Decodable
}](ctx context.Context, t Transactor, q query.Query) ([]R, error) {
	var out []R
	err := t.Update(ctx, func(tx *Tx) error {
		var err error
		out, err = SelectQuery[R, PR](tx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
