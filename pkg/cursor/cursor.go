// Package cursor walks a bounded, directional range of a kv.Table.
package cursor

import (
	"github.com/ssargent/strata/pkg/kv"
)

// Direction is the order in which keys are yielded.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Bound is one end of a scan.
type Bound struct {
	Key       []byte
	Inclusive bool
}

// Request describes a scan. A nil Start.Key starts at the first (Forward) or
// last (Backward) key of the table. A nil End is unbounded. Limit 0 means no
// limit.
type Request struct {
	Direction Direction
	Start     Bound
	End       *Bound
	Limit     int
}

type state int

const (
	notStarted state = iota
	running
	completed
)

// Cursor yields the key/value pairs of a Request one at a time. It is
// one-shot and belongs to the transaction that opened the table.
type Cursor struct {
	c     kv.Cursor
	cmp   func(a, b []byte) int
	req   Request
	state state
	count int
	key   []byte
	value []byte
	err   error
	shut  bool
}

// Open prepares a scan over tbl. Nothing is read until the first Next.
func Open(tbl kv.Table, req Request) (*Cursor, error) {
	c, err := tbl.Cursor()
	if err != nil {
		return nil, err
	}
	return &Cursor{c: c, cmp: tbl.Compare, req: req}, nil
}

// Next advances to the next pair in range. It returns false once the range,
// the limit or the table is exhausted, and keeps returning false after that.
func (c *Cursor) Next() bool {
	var k, v []byte
	switch c.state {
	case completed:
		return false
	case notStarted:
		c.state = running
		k, v = c.start()
	case running:
		if c.req.Limit > 0 && c.count >= c.req.Limit {
			return c.finish()
		}
		if c.req.Direction == Backward {
			k, v = c.c.Prev()
		} else {
			k, v = c.c.Next()
		}
	}

	if k == nil || c.pastEnd(k) {
		return c.finish()
	}
	c.count++
	c.key, c.value = k, v
	return true
}

func (c *Cursor) start() (k, v []byte) {
	start := c.req.Start
	if c.req.Direction == Forward {
		if start.Key == nil {
			return c.c.First()
		}
		k, v = c.c.Seek(start.Key)
		if k != nil && !start.Inclusive && c.cmp(k, start.Key) == 0 {
			k, v = c.c.Next()
		}
		return k, v
	}

	if start.Key == nil {
		return c.c.Last()
	}
	k, v = c.c.Seek(start.Key)
	switch {
	case k == nil:
		k, v = c.c.Last()
	case c.cmp(k, start.Key) > 0:
		k, v = c.c.Prev()
	case !start.Inclusive:
		k, v = c.c.Prev()
	}
	return k, v
}

// pastEnd reports whether k lies beyond the end bound in the scan direction.
func (c *Cursor) pastEnd(k []byte) bool {
	end := c.req.End
	if end == nil {
		return false
	}
	r := c.cmp(k, end.Key)
	if r == 0 {
		return !end.Inclusive
	}
	if c.req.Direction == Backward {
		return r < 0
	}
	return r > 0
}

func (c *Cursor) finish() bool {
	if c.state != completed {
		c.state = completed
		c.err = c.c.Err()
		c.key, c.value = nil, nil
	}
	return false
}

// Key returns the current key. It is valid until the next call to Next.
func (c *Cursor) Key() []byte { return c.key }

// Value returns the current value. It is valid until the next call to Next.
func (c *Cursor) Value() []byte { return c.value }

// Count returns the number of pairs yielded so far.
func (c *Cursor) Count() int { return c.count }

// Done reports whether the cursor has completed.
func (c *Cursor) Done() bool { return c.state == completed }

// Err returns the engine error that ended the scan, if any.
func (c *Cursor) Err() error { return c.err }

// Close releases the underlying engine cursor and completes the scan. Only
// the first call reaches the engine.
func (c *Cursor) Close() error {
	c.finish()
	if c.shut {
		return nil
	}
	c.shut = true
	return c.c.Close()
}
