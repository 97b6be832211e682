package store

import (
	"context"
	"sync"

	"github.com/ssargent/strata/pkg/kv"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the BackgroundStore pool size used when none is given.
const DefaultWorkers = 4

type job struct {
	ctx      context.Context
	writable bool
	fn       func(tx *Tx) error
	done     chan error
}

// BackgroundStore runs transactions on a fixed pool of worker goroutines.
// Each worker owns its scratch buffers, so transactions from different
// callers may be in flight at once; the engine still admits one writer at a
// time.
type BackgroundStore struct {
	*backend
	jobs   chan job
	group  errgroup.Group
	mu     sync.RWMutex
	closed bool
}

var _ Transactor = (*BackgroundStore)(nil)

// NewBackground starts a BackgroundStore with the given number of workers
// over env. The caller keeps ownership of env and must Close the
// BackgroundStore before closing it.
func NewBackground(env kv.Env, opts Options, workers int) *BackgroundStore {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	b := &BackgroundStore{
		backend: newBackend(env, opts),
		jobs:    make(chan job),
	}
	for i := 0; i < workers; i++ {
		buf := b.newBuffers()
		b.group.Go(func() error {
			for j := range b.jobs {
				j.done <- b.run(j.ctx, buf, j.writable, j.fn)
			}
			return nil
		})
	}
	b.log.Debugf("background store started with %d workers", workers)
	return b
}

// Update runs fn in a writable transaction on a worker and waits for it.
func (b *BackgroundStore) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return b.submit(ctx, true, fn)
}

// View runs fn in a read-only transaction on a worker and waits for it.
func (b *BackgroundStore) View(ctx context.Context, fn func(tx *Tx) error) error {
	return b.submit(ctx, false, fn)
}

// submit hands the transaction to a worker. A context cancelled while
// waiting for a free worker abandons the submission; once a worker has the
// transaction, submit waits for its outcome.
func (b *BackgroundStore) submit(ctx context.Context, writable bool, fn func(tx *Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	j := job{ctx: ctx, writable: writable, fn: fn, done: make(chan error, 1)}
	select {
	case b.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-j.done
}

// Close stops the workers after in-flight transactions finish.
func (b *BackgroundStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.jobs)
	b.mu.Unlock()
	return b.group.Wait()
}

// Backgroundable pairs a Store for the caller's own goroutine with a
// BackgroundStore, both over one environment.
type Backgroundable struct {
	Main       *Store
	Background *BackgroundStore
	env        kv.Env
	owned      bool
}

// NewBackgroundable creates both stores over env. The caller keeps
// ownership of env.
func NewBackgroundable(env kv.Env, opts Options, workers int) *Backgroundable {
	return &Backgroundable{
		Main:       New(env, opts),
		Background: NewBackground(env, opts, workers),
		env:        env,
	}
}

// Env returns the shared environment.
func (b *Backgroundable) Env() kv.Env { return b.env }

// Close stops the background workers and closes the environment when it was
// opened by Open.
func (b *Backgroundable) Close() error {
	if err := b.Background.Close(); err != nil {
		return err
	}
	if b.owned {
		return b.env.Close()
	}
	return nil
}
