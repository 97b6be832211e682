package store

import (
	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/record"
)

var (
	// ErrKeyBufferOverflow is returned when an encoded key does not fit the
	// key scratch buffer. Nothing is written.
	ErrKeyBufferOverflow = errors.New("store: key buffer overflow")
	// ErrValueBufferOverflow is returned when encoded fields do not fit the
	// value scratch buffer. Nothing is written.
	ErrValueBufferOverflow = errors.New("store: value buffer overflow")
	// ErrNoActiveStore is returned by FromContext when no store is attached.
	ErrNoActiveStore = errors.New("store: no active store")
	// ErrNoActiveContext is returned by TxFromContext outside a transaction.
	ErrNoActiveContext = errors.New("store: no active transaction context")
	// ErrClosed is returned when submitting work to a closed BackgroundStore.
	ErrClosed = errors.New("store: closed")
	// ErrCorruption is returned when a dump file holds a damaged frame.
	ErrCorruption = errors.New("store: corrupted dump")
)

// Aliases for the errors raised by lower layers, so callers of this package
// can match every error it returns without importing them.
var (
	ErrPrefixMismatch       = record.ErrPrefixMismatch
	ErrMigrationUnsupported = record.ErrMigrationUnsupported
	ErrLimitInvalid         = query.ErrLimitInvalid
	ErrUnsupportedQuery     = query.ErrUnsupportedQuery
)
