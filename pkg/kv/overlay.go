package kv

import (
	"bytes"

	"github.com/google/btree"
	"github.com/pkg/errors"
)

// write is a buffered Put, or a Delete when tombstone is set.
type write struct {
	key       []byte
	value     []byte
	tombstone bool
}

func lessWrite(a, b write) bool { return bytes.Compare(a.key, b.key) < 0 }

// Overlay is a nested transaction built from an ordered write buffer over a
// parent transaction. Reads fall through to the parent for keys the overlay
// has not touched. Commit replays the buffer into the parent in key order.
type Overlay struct {
	parent   Txn
	writable bool
	done     bool
	tables   map[string]*overlayTable
	order    []string
}

var _ Txn = (*Overlay)(nil)

// NewOverlay begins a transaction nested in parent.
func NewOverlay(parent Txn, writable bool) (*Overlay, error) {
	if writable && !parent.Writable() {
		return nil, errors.Wrap(ErrReadOnly, "nested writable transaction in read-only parent")
	}
	return &Overlay{
		parent:   parent,
		writable: writable,
		tables:   make(map[string]*overlayTable),
	}, nil
}

func (o *Overlay) Writable() bool { return o.writable }

func (o *Overlay) Table(name string) (Table, error) {
	if o.done {
		return nil, ErrTxDone
	}
	if t, ok := o.tables[name]; ok {
		return t, nil
	}
	base, err := o.parent.Table(name)
	if err != nil {
		return nil, err
	}
	t := &overlayTable{
		tx:     o,
		base:   base,
		writes: btree.NewG[write](16, lessWrite),
	}
	o.tables[name] = t
	o.order = append(o.order, name)
	return t, nil
}

// Commit applies buffered writes to the parent. The parent is left
// untouched if the overlay was read-only or wrote nothing. If a write fails
// the overlay stays open for Rollback and the parent may hold part of the
// buffer.
func (o *Overlay) Commit() error {
	if o.done {
		return ErrTxDone
	}

	for _, name := range o.order {
		t := o.tables[name]
		var err error
		t.writes.Ascend(func(w write) bool {
			if w.tombstone {
				if err = t.base.Delete(w.key); IsNotFound(err) {
					err = nil
				}
			} else {
				err = t.base.Put(w.key, w.value)
			}
			return err == nil
		})
		if err != nil {
			return errors.Wrapf(err, "applying nested writes to %q", name)
		}
	}
	o.done = true
	return nil
}

func (o *Overlay) Rollback() error {
	if o.done {
		return ErrTxDone
	}
	o.done = true
	o.tables = nil
	return nil
}

type overlayTable struct {
	tx     *Overlay
	base   Table
	writes *btree.BTreeG[write]
}

func (t *overlayTable) Get(key []byte) ([]byte, error) {
	if t.tx.done {
		return nil, ErrTxDone
	}
	if w, ok := t.writes.Get(write{key: key}); ok {
		if w.tombstone {
			return nil, ErrNotFound
		}
		return w.value, nil
	}
	return t.base.Get(key)
}

func (t *overlayTable) Put(key, value []byte) error {
	if t.tx.done {
		return ErrTxDone
	}
	if !t.tx.writable {
		return ErrReadOnly
	}
	t.writes.ReplaceOrInsert(write{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (t *overlayTable) Delete(key []byte) error {
	if !t.tx.writable {
		return ErrReadOnly
	}
	if _, err := t.Get(key); err != nil {
		return err
	}
	t.writes.ReplaceOrInsert(write{key: append([]byte(nil), key...), tombstone: true})
	return nil
}

func (t *overlayTable) Compare(a, b []byte) int { return t.base.Compare(a, b) }

func (t *overlayTable) Cursor() (Cursor, error) {
	if t.tx.done {
		return nil, ErrTxDone
	}
	base, err := t.base.Cursor()
	if err != nil {
		return nil, err
	}
	return &overlayCursor{table: t, base: base}, nil
}

// overlayCursor merges the parent's cursor with the write buffer. It keeps
// only its current key and re-seeks both sources on every move, so it stays
// correct whatever the parent cursor does with its key memory.
type overlayCursor struct {
	table *overlayTable
	base  Cursor
	cur   []byte
	valid bool
}

func (c *overlayCursor) Err() error   { return c.base.Err() }
func (c *overlayCursor) Close() error { return c.base.Close() }

func (c *overlayCursor) First() (k, v []byte) {
	bk, bv := c.base.First()
	w, ok := c.table.writes.Min()
	return c.forward(bk, bv, w, ok)
}

func (c *overlayCursor) Last() (k, v []byte) {
	bk, bv := c.base.Last()
	w, ok := c.table.writes.Max()
	return c.backward(bk, bv, w, ok)
}

func (c *overlayCursor) Seek(key []byte) (k, v []byte) {
	bk, bv := c.base.Seek(key)
	w, ok := c.ceil(key, false)
	return c.forward(bk, bv, w, ok)
}

func (c *overlayCursor) Next() (k, v []byte) {
	if !c.valid {
		return nil, nil
	}
	bk, bv := c.base.Seek(c.cur)
	if bk != nil && c.table.Compare(bk, c.cur) == 0 {
		bk, bv = c.base.Next()
	}
	w, ok := c.ceil(c.cur, true)
	return c.forward(bk, bv, w, ok)
}

func (c *overlayCursor) Prev() (k, v []byte) {
	if !c.valid {
		return nil, nil
	}
	// The first key >= cur; the one before it is the largest key < cur.
	bk, bv := c.base.Seek(c.cur)
	if bk == nil {
		bk, bv = c.base.Last()
	} else {
		bk, bv = c.base.Prev()
	}
	w, ok := c.floor(c.cur, true)
	return c.backward(bk, bv, w, ok)
}

// ceil returns the first buffered write >= key, or > key when strict.
func (c *overlayCursor) ceil(key []byte, strict bool) (found write, ok bool) {
	c.table.writes.AscendGreaterOrEqual(write{key: key}, func(w write) bool {
		if strict && bytes.Equal(w.key, key) {
			return true
		}
		found, ok = w, true
		return false
	})
	return found, ok
}

// floor returns the last buffered write <= key, or < key when strict.
func (c *overlayCursor) floor(key []byte, strict bool) (found write, ok bool) {
	c.table.writes.DescendLessOrEqual(write{key: key}, func(w write) bool {
		if strict && bytes.Equal(w.key, key) {
			return true
		}
		found, ok = w, true
		return false
	})
	return found, ok
}

// forward picks the smaller of the parent's candidate and the buffer's,
// skipping tombstones.
func (c *overlayCursor) forward(bk, bv []byte, w write, ok bool) (k, v []byte) {
	for {
		if bk == nil && !ok {
			return c.settle(nil, nil)
		}
		cmp := 1
		if bk != nil && ok {
			cmp = c.table.Compare(w.key, bk)
		} else if ok {
			cmp = -1
		}
		if cmp > 0 {
			return c.settle(bk, bv)
		}
		if !w.tombstone {
			return c.settle(w.key, w.value)
		}
		// Deleted: move both sources past the tombstone.
		if cmp == 0 {
			bk, bv = c.base.Next()
		}
		w, ok = c.ceil(w.key, true)
	}
}

// backward is forward's mirror image.
func (c *overlayCursor) backward(bk, bv []byte, w write, ok bool) (k, v []byte) {
	for {
		if bk == nil && !ok {
			return c.settle(nil, nil)
		}
		cmp := -1
		if bk != nil && ok {
			cmp = c.table.Compare(w.key, bk)
		} else if ok {
			cmp = 1
		}
		if cmp < 0 {
			return c.settle(bk, bv)
		}
		if !w.tombstone {
			return c.settle(w.key, w.value)
		}
		if cmp == 0 {
			bk, bv = c.base.Prev()
		}
		w, ok = c.floor(w.key, true)
	}
}

func (c *overlayCursor) settle(k, v []byte) ([]byte, []byte) {
	if k == nil {
		c.valid = false
		return nil, nil
	}
	c.cur = append(c.cur[:0], k...)
	c.valid = true
	return k, v
}
