package query

import (
	"testing"

	"github.com/ssargent/strata/pkg/codec"
	"github.com/ssargent/strata/pkg/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = uint32(0x01020304)

func enc(t *testing.T, vs ...codec.Value) []byte {
	t.Helper()
	b, err := codec.Encode(codec.Tuple(append([]codec.Value{codec.Uint32(prefix)}, vs...)))
	require.NoError(t, err)
	return b
}

func TestNextPrefix(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte{0x01}, []byte{0x02}},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0x01, 0xfe, 0xff, 0xff}, []byte{0x01, 0xff}},
		{[]byte{0xff, 0xff}, nil},
		{[]byte{}, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPrefix(tt.in), "%x", tt.in)
	}

	in := []byte{0x01, 0x02}
	NextPrefix(in)
	assert.Equal(t, []byte{0x01, 0x02}, in, "input must not be modified")
}

func TestPlanScans(t *testing.T) {
	hello := codec.String("hello")
	p := enc(t, hello)
	upper := NextPrefix(p)

	tests := []struct {
		name string
		q    Query
		want cursor.Request
	}{
		{
			name: "prefix",
			q:    New(hello),
			want: cursor.Request{Start: cursor.Bound{Key: p, Inclusive: true}, End: &cursor.Bound{Key: upper}},
		},
		{
			name: "greater than skips the whole component",
			q:    New(hello).Where(GreaterThan(codec.Int64(41))),
			want: cursor.Request{
				Start: cursor.Bound{Key: NextPrefix(enc(t, hello, codec.Int64(41))), Inclusive: true},
				End:   &cursor.Bound{Key: upper},
			},
		},
		{
			name: "greater or equal",
			q:    New(hello).Where(GreaterOrEqual(codec.Int64(41))).Limit(2),
			want: cursor.Request{
				Start: cursor.Bound{Key: enc(t, hello, codec.Int64(41)), Inclusive: true},
				End:   &cursor.Bound{Key: upper},
				Limit: 2,
			},
		},
		{
			name: "less than scans backward",
			q:    New(hello).Where(LessThan(codec.Int64(42))),
			want: cursor.Request{
				Direction: cursor.Backward,
				Start:     cursor.Bound{Key: enc(t, hello, codec.Int64(42))},
				End:       &cursor.Bound{Key: p},
			},
		},
		{
			name: "less or equal starts past the component",
			q:    New(hello).Where(LessOrEqual(codec.Int64(42))),
			want: cursor.Request{
				Direction: cursor.Backward,
				Start:     cursor.Bound{Key: NextPrefix(enc(t, hello, codec.Int64(42)))},
				End:       &cursor.Bound{Key: p},
			},
		},
		{
			name: "range is half open",
			q:    New(hello).Where(Range(codec.Int64(1), codec.Int64(5))),
			want: cursor.Request{
				Start: cursor.Bound{Key: enc(t, hello, codec.Int64(1)), Inclusive: true},
				End:   &cursor.Bound{Key: enc(t, hello, codec.Int64(5))},
			},
		},
		{
			name: "closed range includes the upper component",
			q:    New(hello).Where(ClosedRange(codec.Int64(1), codec.Int64(5))),
			want: cursor.Request{
				Start: cursor.Bound{Key: enc(t, hello, codec.Int64(1)), Inclusive: true},
				End:   &cursor.Bound{Key: NextPrefix(enc(t, hello, codec.Int64(5)))},
			},
		},
		{
			name: "all",
			q:    All(),
			want: cursor.Request{Start: cursor.Bound{Key: enc(t), Inclusive: true}, End: &cursor.Bound{Key: NextPrefix(enc(t))}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.q.Plan(prefix)
			require.NoError(t, err)
			require.False(t, plan.IsLookup())
			assert.Equal(t, tt.want, *plan.Scan)
			assert.NotEmpty(t, plan.String())
		})
	}
}

func TestPlanEquals(t *testing.T) {
	q := New(codec.String("hello")).Where(Equals(codec.Int64(40)))
	plan, err := q.Plan(prefix)
	require.NoError(t, err)
	require.True(t, plan.IsLookup())
	assert.Equal(t, [][]byte{enc(t, codec.String("hello"), codec.Int64(40))}, plan.Lookups)
	assert.Equal(t, 1, plan.Limit)

	_, err = q.Limit(1).Plan(prefix)
	assert.NoError(t, err)

	_, err = q.Limit(2).Plan(prefix)
	require.ErrorIs(t, err, ErrLimitInvalid)
	var li *LimitInvalid
	require.ErrorAs(t, err, &li)
	assert.Equal(t, 2, li.Limit)

	// the same limit is fine on a scan
	_, err = New(codec.String("hello")).Where(GreaterThan(codec.Int64(40))).Limit(2).Plan(prefix)
	assert.NoError(t, err)
}

func TestPlanWithin(t *testing.T) {
	plan, err := All().Where(Within(codec.String("b"), codec.String("a"))).Limit(1).Plan(prefix)
	require.NoError(t, err)
	require.True(t, plan.IsLookup())
	assert.Equal(t, [][]byte{enc(t, codec.String("b")), enc(t, codec.String("a"))}, plan.Lookups)
	assert.Equal(t, 1, plan.Limit)
}

func TestPlanErrors(t *testing.T) {
	_, err := All().Limit(0).Plan(prefix)
	assert.ErrorIs(t, err, ErrLimitInvalid)

	_, err = All().Limit(-3).Plan(prefix)
	assert.ErrorIs(t, err, ErrLimitInvalid)

	_, err = All().Where(Operator{Kind: KindGreaterThan}).Plan(prefix)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = All().Where(Operator{Kind: Kind(99)}).Plan(prefix)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = New(codec.String("nul\x00")).Plan(prefix)
	assert.ErrorIs(t, err, codec.ErrEmbeddedNUL)
}

func TestQueryIsImmutable(t *testing.T) {
	base := New(codec.String("a"))
	limited := base.Limit(5)
	_, has := base.MaxResults()
	assert.False(t, has)
	n, has := limited.MaxResults()
	assert.True(t, has)
	assert.Equal(t, 5, n)
	assert.Equal(t, KindPrefix, base.Operator().Kind)
	assert.Equal(t, KindLessThan, base.Where(LessThan(codec.Int(1))).Operator().Kind)
	assert.Equal(t, `(a, < 1) limit 5`, limited.Where(LessThan(codec.Int(1))).String())
}
