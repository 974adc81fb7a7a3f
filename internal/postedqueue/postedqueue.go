// Package postedqueue implements the FIFO of posted (fire-and-forget)
// messages.
package postedqueue

import (
	"container/list"
	"sync"

	"github.com/kernelbin/msgqueue/internal/msgpool"
	"github.com/kernelbin/msgqueue/internal/wake"
)

// FIFO is the posted-message list for one queue.
type FIFO struct {
	mu    sync.Mutex
	items *list.List
	pool  *msgpool.Pool
	wake  *wake.Counters
}

// New returns an empty FIFO backed by pool for record allocation and
// counters for wake accounting.
func New(pool *msgpool.Pool, counters *wake.Counters) *FIFO {
	return &FIFO{items: list.New(), pool: pool, wake: counters}
}

// Post acquires a record from the pool, copies payload into it, tags it
// with wakeMask and origin, appends it, and wakes the queue.
func (f *FIFO) Post(payload msgpool.Record, wakeMask wake.Mask, origin uintptr) {
	rec := f.pool.Acquire()
	*rec = payload
	rec.WakeMask = uint32(wakeMask)
	rec.Origin = origin

	f.mu.Lock()
	f.items.PushBack(rec)
	f.mu.Unlock()

	f.wake.Wake(wakeMask, true)
}

// Front returns the first element, or nil if empty.
func (f *FIFO) Front() *list.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Front()
}

// Lock/Unlock expose the FIFO's mutex for callers (the Peek path) that need
// to walk elements and conditionally remove the current one atomically.
func (f *FIFO) Lock()   { f.mu.Lock() }
func (f *FIFO) Unlock() { f.mu.Unlock() }

// FrontLocked is Front's counterpart for callers that already hold the
// lock via Lock().
func (f *FIFO) FrontLocked() *list.Element { return f.items.Front() }

// NextLocked returns e's successor. Caller must hold the lock.
func (f *FIFO) NextLocked(e *list.Element) *list.Element { return e.Next() }

// ValueLocked returns e's *msgpool.Record. Caller must hold the lock.
func (f *FIFO) ValueLocked(e *list.Element) *msgpool.Record { return e.Value.(*msgpool.Record) }

// RemoveAndRelease unlinks e, clears wake accounting for its contribution,
// and returns the record to the pool. Caller must hold the lock.
func (f *FIFO) RemoveAndRelease(e *list.Element) {
	rec := e.Value.(*msgpool.Record)
	f.items.Remove(e)
	f.wake.Clear(wake.Mask(rec.WakeMask))
	f.pool.Release(rec)
}

// Len returns the current length.
func (f *FIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Len()
}

// Drain removes every record, invoking cleanup(rec) for each before
// releasing it to the pool. Used by teardown, where posted records carrying
// a queued-event marker may own ancillary heap memory.
func (f *FIFO) Drain(cleanup func(rec *msgpool.Record)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for e := f.items.Front(); e != nil; {
		next := e.Next()
		rec := e.Value.(*msgpool.Record)
		if cleanup != nil {
			cleanup(rec)
		}
		f.wake.Clear(wake.Mask(rec.WakeMask))
		f.pool.Release(rec)
		f.items.Remove(e)
		e = next
	}
}
