package store

import (
	"github.com/ssargent/strata/pkg/cursor"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/record"
)

// ScanRange runs the record scan over [start, end) of the records table,
// whatever key prefixes the range covers.
func ScanRange[R any, PR interface {
	*R
	record.Decodable
}](tx *Tx, start, end []byte) ([]R, error) {
	return scan[R, PR](tx, query.Plan{Scan: &cursor.Request{
		Start: cursor.Bound{Key: start, Inclusive: true},
		End:   &cursor.Bound{Key: end},
	}})
}
