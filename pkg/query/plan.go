package query

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/cursor"
)

// Plan is a Query resolved for one key prefix: either a list of exact keys
// to look up or a scan.
type Plan struct {
	// Prefix is the encoded key prefix and leading components.
	Prefix []byte
	// Lookups holds full keys for equality and membership queries.
	Lookups [][]byte
	// Scan is set for every other query.
	Scan *cursor.Request
	// Limit caps the number of lookups that may match. Zero means none.
	Limit int
}

// IsLookup reports whether the plan is a set of exact key lookups.
func (p Plan) IsLookup() bool { return p.Scan == nil }

func (p Plan) String() string {
	if p.IsLookup() {
		return fmt.Sprintf("lookup %d key(s) limit %d", len(p.Lookups), p.Limit)
	}
	s := p.Scan
	end := "unbounded"
	if s.End != nil {
		end = fmt.Sprintf("%x inclusive=%t", s.End.Key, s.End.Inclusive)
	}
	return fmt.Sprintf("scan %s from %x inclusive=%t to %s limit %d",
		s.Direction, s.Start.Key, s.Start.Inclusive, end, s.Limit)
}

// Plan resolves q for records whose keys start with keyPrefix.
func (q Query) Plan(keyPrefix uint32) (Plan, error) {
	if q.hasLimit && q.limit < 1 {
		return Plan{}, &LimitInvalid{Limit: q.limit}
	}

	prefix, err := codec.Encode(codec.Tuple{codec.Uint32(keyPrefix), q.leading})
	if err != nil {
		return Plan{}, errors.Wrap(err, "encoding query prefix")
	}
	plan := Plan{Prefix: prefix}
	op := q.op

	if err := op.validate(); err != nil {
		return Plan{}, err
	}

	with := func(v codec.Value) ([]byte, error) {
		b, err := codec.AppendEncode(prefix, v)
		return b, errors.Wrap(err, "encoding query bound")
	}
	scan := func(r cursor.Request) (Plan, error) {
		if q.hasLimit {
			r.Limit = q.limit
		}
		plan.Scan = &r
		return plan, nil
	}
	// end of the key range sharing the query prefix
	upper := bound(NextPrefix(prefix), false)
	lower := bound(prefix, false)

	switch op.Kind {
	case KindPrefix:
		return scan(cursor.Request{Start: cursor.Bound{Key: prefix, Inclusive: true}, End: upper})

	case KindGreaterThan:
		lo, err := with(op.Lo)
		if err != nil {
			return Plan{}, err
		}
		// Skip every key whose component equals lo, not just the exact key.
		start := NextPrefix(lo)
		if start == nil {
			return scan(cursor.Request{Start: cursor.Bound{Key: lo}, End: &cursor.Bound{Key: lo}})
		}
		return scan(cursor.Request{Start: cursor.Bound{Key: start, Inclusive: true}, End: upper})

	case KindGreaterOrEqual:
		lo, err := with(op.Lo)
		if err != nil {
			return Plan{}, err
		}
		return scan(cursor.Request{Start: cursor.Bound{Key: lo, Inclusive: true}, End: upper})

	case KindLessThan:
		hi, err := with(op.Hi)
		if err != nil {
			return Plan{}, err
		}
		return scan(cursor.Request{Direction: cursor.Backward, Start: cursor.Bound{Key: hi}, End: lower})

	case KindLessOrEqual:
		hi, err := with(op.Hi)
		if err != nil {
			return Plan{}, err
		}
		// Start past every key whose component equals hi. A nil start
		// scans back from the last key in the table.
		return scan(cursor.Request{Direction: cursor.Backward, Start: cursor.Bound{Key: NextPrefix(hi)}, End: lower})

	case KindRange:
		lo, err := with(op.Lo)
		if err != nil {
			return Plan{}, err
		}
		hi, err := with(op.Hi)
		if err != nil {
			return Plan{}, err
		}
		return scan(cursor.Request{Start: cursor.Bound{Key: lo, Inclusive: true}, End: bound(hi, false)})

	case KindClosedRange:
		lo, err := with(op.Lo)
		if err != nil {
			return Plan{}, err
		}
		hi, err := with(op.Hi)
		if err != nil {
			return Plan{}, err
		}
		if bytes.Equal(lo, hi) {
			if q.hasLimit && q.limit != 1 {
				return Plan{}, &LimitInvalid{Limit: q.limit}
			}
			plan.Lookups = [][]byte{lo}
			plan.Limit = 1
			return plan, nil
		}
		end := bound(NextPrefix(hi), false)
		if end == nil {
			end = upper
		}
		return scan(cursor.Request{Start: cursor.Bound{Key: lo, Inclusive: true}, End: end})

	case KindWithin:
		for _, v := range op.Set {
			k, err := with(v)
			if err != nil {
				return Plan{}, err
			}
			plan.Lookups = append(plan.Lookups, k)
		}
		if q.hasLimit {
			plan.Limit = q.limit
		}
		return plan, nil
	}
	return Plan{}, errors.Wrapf(ErrUnsupportedQuery, "operator %s", op.Kind)
}

func (o Operator) validate() error {
	switch o.Kind {
	case KindPrefix:
		return nil
	case KindGreaterThan, KindGreaterOrEqual:
		if o.Lo == nil {
			return errors.Wrapf(ErrUnsupportedQuery, "%s without a value", o.Kind)
		}
	case KindLessThan, KindLessOrEqual:
		if o.Hi == nil {
			return errors.Wrapf(ErrUnsupportedQuery, "%s without a value", o.Kind)
		}
	case KindRange, KindClosedRange:
		if o.Lo == nil || o.Hi == nil {
			return errors.Wrapf(ErrUnsupportedQuery, "%s without both ends", o.Kind)
		}
	case KindWithin:
		for _, v := range o.Set {
			if v == nil {
				return errors.Wrap(ErrUnsupportedQuery, "within set holds nil")
			}
		}
	default:
		return errors.Wrapf(ErrUnsupportedQuery, "operator %s", o.Kind)
	}
	return nil
}

func bound(key []byte, inclusive bool) *cursor.Bound {
	if key == nil {
		return nil
	}
	return &cursor.Bound{Key: key, Inclusive: inclusive}
}

// NextPrefix returns the smallest key greater than every key that starts
// with prefix, or nil when no such key exists (prefix is all 0xff).
func NextPrefix(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			out := make([]byte, i+1)
			copy(out, prefix)
			out[i]++
			return out
		}
	}
	return nil
}
