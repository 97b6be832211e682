// Package query turns typed key predicates into byte-range scans.
//
// A Query binds the leading components of a compound key by equality and
// applies one Operator to the component that follows them:
//
//	// a == "hello" && b >= 41
//	q := query.New(codec.String("hello")).Where(query.GreaterOrEqual(codec.Int64(41)))
//
// Plan resolves a Query for one record type into either exact key lookups or
// a cursor.Request whose bounds never leave the keys sharing the type prefix
// and the leading components.
package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/codec"
)

var (
	ErrLimitInvalid     = errors.New("query: invalid limit")
	ErrUnsupportedQuery = errors.New("query: unsupported query")
)

// LimitInvalid reports a limit that the query cannot honour.
type LimitInvalid struct {
	Limit int
}

func (e *LimitInvalid) Error() string {
	return fmt.Sprintf("query: invalid limit %d", e.Limit)
}

func (e *LimitInvalid) Is(target error) bool { return target == ErrLimitInvalid }

// Kind is the comparison an Operator performs.
type Kind int

const (
	// KindPrefix matches every key that starts with the leading components.
	KindPrefix Kind = iota
	KindGreaterThan
	KindGreaterOrEqual
	KindLessThan
	KindLessOrEqual
	// KindRange is half-open: lo <= v < hi.
	KindRange
	// KindClosedRange is lo <= v <= hi. Equals is a closed range with lo == hi.
	KindClosedRange
	KindWithin
)

var kindNames = [...]string{"prefix", ">", ">=", "<", "<=", "range", "closedRange", "within"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Operator compares one key component. Build it with the typed constructors
// so both ends of a range share a type.
type Operator struct {
	Kind Kind
	Lo   codec.Value
	Hi   codec.Value
	Set  []codec.Value
}

func GreaterThan[T codec.Value](v T) Operator {
	return Operator{Kind: KindGreaterThan, Lo: v}
}

func GreaterOrEqual[T codec.Value](v T) Operator {
	return Operator{Kind: KindGreaterOrEqual, Lo: v}
}

func LessThan[T codec.Value](v T) Operator {
	return Operator{Kind: KindLessThan, Hi: v}
}

func LessOrEqual[T codec.Value](v T) Operator {
	return Operator{Kind: KindLessOrEqual, Hi: v}
}

// Range is the half-open range lo <= v < hi.
func Range[T codec.Value](lo, hi T) Operator {
	return Operator{Kind: KindRange, Lo: lo, Hi: hi}
}

// ClosedRange is lo <= v <= hi.
func ClosedRange[T codec.Value](lo, hi T) Operator {
	return Operator{Kind: KindClosedRange, Lo: lo, Hi: hi}
}

// Equals matches exactly v. It is the closed range v...v and resolves to a
// single key lookup, so v must complete the key.
func Equals[T codec.Value](v T) Operator {
	return Operator{Kind: KindClosedRange, Lo: v, Hi: v}
}

// Within matches each of vs by exact lookup, returning results in the order
// of vs.
func Within[T codec.Value](vs ...T) Operator {
	set := make([]codec.Value, len(vs))
	for i, v := range vs {
		set[i] = v
	}
	return Operator{Kind: KindWithin, Set: set}
}

func (o Operator) String() string {
	switch o.Kind {
	case KindPrefix:
		return "*"
	case KindGreaterThan, KindGreaterOrEqual:
		return fmt.Sprintf("%s %v", o.Kind, o.Lo)
	case KindLessThan, KindLessOrEqual:
		return fmt.Sprintf("%s %v", o.Kind, o.Hi)
	case KindRange:
		return fmt.Sprintf("%v..<%v", o.Lo, o.Hi)
	case KindClosedRange:
		return fmt.Sprintf("%v...%v", o.Lo, o.Hi)
	case KindWithin:
		return fmt.Sprintf("in %v", o.Set)
	}
	return o.Kind.String()
}

// Query is an immutable key predicate with an optional result limit.
type Query struct {
	leading  codec.Tuple
	op       Operator
	limit    int
	hasLimit bool
}

// New starts a query whose key begins with leading. With no Where clause it
// matches every key sharing those components.
func New(leading ...codec.Value) Query {
	return Query{leading: append(codec.Tuple(nil), leading...)}
}

// All matches every record of a type.
func All() Query { return Query{} }

// Where returns a copy of q applying op to the component after the leading ones.
func (q Query) Where(op Operator) Query {
	q.op = op
	return q
}

// Limit returns a copy of q that yields at most n results.
func (q Query) Limit(n int) Query {
	q.limit, q.hasLimit = n, true
	return q
}

func (q Query) Leading() codec.Tuple    { return q.leading }
func (q Query) Operator() Operator      { return q.op }
func (q Query) MaxResults() (int, bool) { return q.limit, q.hasLimit }

func (q Query) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for _, v := range q.leading {
		fmt.Fprintf(&sb, "%v, ", v)
	}
	sb.WriteString(q.op.String())
	sb.WriteString(")")
	if q.hasLimit {
		fmt.Fprintf(&sb, " limit %d", q.limit)
	}
	return sb.String()
}
