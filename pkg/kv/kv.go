// Package kv defines the ordered key/value engine Strata stores records in.
//
// An engine provides an environment of named tables inside ACID transactions.
// Keys are compared byte-wise. Writers are serialized by the engine; readers
// see a snapshot taken when their transaction began. Nested transactions are
// provided by Overlay for engines that have no native support.
package kv

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get and Delete when the key is absent.
	ErrNotFound = errors.New("kv: not found")
	// ErrReadOnly is returned when writing in a read-only transaction.
	ErrReadOnly = errors.New("kv: permission denied: read-only transaction")
	// ErrTxDone is returned when using a committed or rolled back transaction.
	ErrTxDone = errors.New("kv: transaction already committed or rolled back")
)

// Failure is a generic engine error carrying the engine's own code.
type Failure struct {
	Code    int
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("kv: engine failure %d: %s", f.Code, f.Message)
}

// Env is an open engine environment.
type Env interface {
	// Begin starts a transaction. A non-nil parent starts a transaction
	// nested in parent: it sees parent's uncommitted writes, and its own
	// writes reach parent only when it commits.
	Begin(parent Txn, writable bool) (Txn, error)
	// MaxKeySize is the largest key the engine accepts.
	MaxKeySize() int
	// Path is the location of the environment's backing files.
	Path() string
	Close() error
}

// Txn is a transaction. It must be used by one goroutine at a time.
type Txn interface {
	// Table opens the named table, creating it in writable transactions.
	// In a read-only transaction a missing table reads as empty.
	Table(name string) (Table, error)
	Writable() bool
	Commit() error
	Rollback() error
}

// Table is a transaction-scoped handle on a named table.
type Table interface {
	// Get returns the value for key or ErrNotFound. The result is only valid
	// until the transaction ends or the table is next modified.
	Get(key []byte) ([]byte, error)
	// Put stores value under key. The table keeps its own copy of both.
	Put(key, value []byte) error
	// Delete removes key, returning ErrNotFound when absent.
	Delete(key []byte) error
	// Cursor opens a cursor over the table. Modifying the table invalidates
	// open cursors.
	Cursor() (Cursor, error)
	// Compare orders two keys the way the table does.
	Compare(a, b []byte) int
}

// Cursor walks a table in key order. Positioning methods return the key and
// value at the new position, or a nil key when the cursor ran off either end.
type Cursor interface {
	// Seek moves to the first key greater than or equal to key.
	Seek(key []byte) (k, v []byte)
	First() (k, v []byte)
	Last() (k, v []byte)
	Next() (k, v []byte)
	Prev() (k, v []byte)
	// Err returns the error, if any, that stopped the cursor.
	Err() error
	Close() error
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
