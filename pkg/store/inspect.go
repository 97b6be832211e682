package store

import (
	"context"
	"encoding/binary"
	"sort"

	"github.com/ssargent/strata/pkg/cursor"
	"github.com/ssargent/strata/pkg/query"
	"github.com/ssargent/strata/pkg/record"
)

// Entry is a raw stored pair.
type Entry struct {
	KeyPrefix     uint32 `json:"key_prefix"`
	FieldsVersion uint32 `json:"fields_version"`
	Key           []byte `json:"key"`
	Value         []byte `json:"value"`
}

func newEntry(k, v []byte) Entry {
	e := Entry{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)}
	if len(k) >= record.PrefixSize {
		e.KeyPrefix = binary.BigEndian.Uint32(k)
	}
	if len(v) >= record.PrefixSize {
		e.FieldsVersion = binary.BigEndian.Uint32(v)
	}
	return e
}

// PrefixStats summarizes the entries of one key prefix.
type PrefixStats struct {
	KeyPrefix uint32         `json:"key_prefix"`
	Entries   int            `json:"entries"`
	Bytes     int64          `json:"bytes"`
	ByVersion map[uint32]int `json:"by_version"`
}

// Stats summarizes a table.
type Stats struct {
	Path       string        `json:"path"`
	Table      string        `json:"table"`
	Entries    int           `json:"entries"`
	KeyBytes   int64         `json:"key_bytes"`
	ValueBytes int64         `json:"value_bytes"`
	Prefixes   []PrefixStats `json:"prefixes"`
}

// ForEach calls fn for every entry whose key starts with prefix, in key
// order, until fn returns false. k and v are only valid during the call.
func (tx *Tx) ForEach(prefix []byte, fn func(k, v []byte) bool) error {
	req := cursor.Request{Start: cursor.Bound{Key: prefix, Inclusive: true}}
	if len(prefix) > 0 {
		if next := query.NextPrefix(prefix); next != nil {
			req.End = &cursor.Bound{Key: next}
		}
	}
	c, err := cursor.Open(tx.tbl, req)
	if err != nil {
		return err
	}
	defer c.Close()
	for c.Next() {
		if !fn(c.Key(), c.Value()) {
			break
		}
	}
	return c.Err()
}

// Scan returns up to limit raw entries whose keys start with prefix. A limit
// below one returns every match.
func (tx *Tx) Scan(prefix []byte, limit int) ([]Entry, error) {
	var out []Entry
	err := tx.ForEach(prefix, func(k, v []byte) bool {
		out = append(out, newEntry(k, v))
		return limit < 1 || len(out) < limit
	})
	return out, err
}

// Stats walks the whole table.
func (tx *Tx) Stats() (*Stats, error) {
	st := &Stats{Path: tx.env.Path(), Table: tx.table}
	byPrefix := map[uint32]*PrefixStats{}
	err := tx.ForEach(nil, func(k, v []byte) bool {
		e := newEntry(k, v)
		st.Entries++
		st.KeyBytes += int64(len(k))
		st.ValueBytes += int64(len(v))
		ps, ok := byPrefix[e.KeyPrefix]
		if !ok {
			ps = &PrefixStats{KeyPrefix: e.KeyPrefix, ByVersion: map[uint32]int{}}
			byPrefix[e.KeyPrefix] = ps
		}
		ps.Entries++
		ps.Bytes += int64(len(k) + len(v))
		ps.ByVersion[e.FieldsVersion]++
		return true
	})
	if err != nil {
		return nil, err
	}
	for _, ps := range byPrefix {
		st.Prefixes = append(st.Prefixes, *ps)
	}
	sort.Slice(st.Prefixes, func(i, j int) bool { return st.Prefixes[i].KeyPrefix < st.Prefixes[j].KeyPrefix })
	tx.metrics.SetRecords(st.Entries)
	return st, nil
}

// Stats summarizes the store's table in a read-only transaction.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st *Stats
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		st, err = tx.Stats()
		return err
	})
	return st, err
}

// Scan returns raw entries whose keys start with prefix.
func (s *Store) Scan(ctx context.Context, prefix []byte, limit int) ([]Entry, error) {
	var out []Entry
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Scan(prefix, limit)
		return err
	})
	return out, err
}
