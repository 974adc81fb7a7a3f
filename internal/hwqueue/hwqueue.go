// Package hwqueue implements the hardware message FIFO with mouse-move
// coalescing: the tail of the list is never more than one
// WM_MOUSEMOVE deep.
package hwqueue

import (
	"container/list"
	"sync"

	"github.com/kernelbin/msgqueue/internal/msgpool"
	"github.com/kernelbin/msgqueue/internal/wake"
)

const wmMouseMove = 0x0200

// Clock supplies monotonic tick timestamps, assigned to every hardware
// message at entry.
type Clock interface {
	TickCount() uint32
}

// FIFO is the hardware-message list for one queue.
type FIFO struct {
	mu    sync.Mutex
	items *list.List
	pool  *msgpool.Pool
	wake  *wake.Counters
	clock Clock

	// pending move: PostMove stores its coordinates here with moved=true and
	// materialises them through coalesceLocked before it returns, so no move
	// is held back until the next button record; moved is false again
	// whenever the lock is released.
	moved       bool
	pendingX    int32
	pendingY    int32
	pendingTag  uint32
	pendingOrig uintptr
}

// New returns an empty FIFO.
func New(pool *msgpool.Pool, counters *wake.Counters, clock Clock) *FIFO {
	return &FIFO{items: list.New(), pool: pool, wake: counters, clock: clock}
}

// PostMove materialises a mouse-move at once: a trailing WM_MOUSEMOVE
// record is updated in place, otherwise a new record is appended. extraInfo
// is stored in the record's ExtraPtr; origin is the originating thread
// back-reference every record carries, stamped exactly like PostButton does.
func (f *FIFO) PostMove(x, y int32, extraInfo uint32, origin uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = true
	f.pendingX, f.pendingY, f.pendingTag, f.pendingOrig = x, y, extraInfo, origin
	f.coalesceLocked()
	f.wake.Wake(wake.MouseMove, true)
}

// coalesceLocked materialises (or updates in place) the pending move at the
// tail of the list. Caller must hold the lock.
func (f *FIFO) coalesceLocked() {
	if !f.moved {
		return
	}
	if tail := f.items.Back(); tail != nil {
		if rec := tail.Value.(*msgpool.Record); rec.Code == wmMouseMove {
			rec.PointX, rec.PointY = f.pendingX, f.pendingY
			rec.ExtraPtr = uintptr(f.pendingTag)
			rec.Time = f.tick()
			rec.Origin = f.pendingOrig
			f.moved = false
			return
		}
	}
	rec := f.pool.Acquire()
	rec.Code = wmMouseMove
	rec.PointX, rec.PointY = f.pendingX, f.pendingY
	rec.ExtraPtr = uintptr(f.pendingTag)
	rec.Time = f.tick()
	rec.WakeMask = uint32(wake.MouseMove)
	rec.Origin = f.pendingOrig
	f.items.PushBack(rec)
	f.moved = false
}

func (f *FIFO) tick() uint32 {
	if f.clock == nil {
		return 0
	}
	return f.clock.TickCount()
}

// PostButton materialises any pending move first (the move-then-click
// ordering invariant), then appends the button (or other non-move) record.
func (f *FIFO) PostButton(payload msgpool.Record, wakeMask wake.Mask, origin uintptr) {
	rec := f.pool.Acquire()
	*rec = payload
	rec.Time = f.tick()
	rec.WakeMask = uint32(wakeMask)
	rec.Origin = origin

	f.mu.Lock()
	f.coalesceLocked()
	f.items.PushBack(rec)
	f.mu.Unlock()

	f.wake.Wake(wakeMask, true)
}

// Front, Lock/Unlock, NextLocked, ValueLocked, RemoveAndRelease, Len, Drain
// mirror postedqueue.FIFO's API exactly — the two FIFOs are walked by the
// same Peek loop in the root package.

func (f *FIFO) Front() *list.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coalesceLocked()
	return f.items.Front()
}

// FrontLocked is Front's counterpart for callers that already hold the
// lock via Lock().
func (f *FIFO) FrontLocked() *list.Element {
	f.coalesceLocked()
	return f.items.Front()
}

func (f *FIFO) Lock() {
	f.mu.Lock()
	f.coalesceLocked()
}
func (f *FIFO) Unlock() { f.mu.Unlock() }

func (f *FIFO) NextLocked(e *list.Element) *list.Element    { return e.Next() }
func (f *FIFO) ValueLocked(e *list.Element) *msgpool.Record { return e.Value.(*msgpool.Record) }

func (f *FIFO) RemoveAndRelease(e *list.Element) {
	rec := e.Value.(*msgpool.Record)
	f.items.Remove(e)
	f.wake.Clear(wake.Mask(rec.WakeMask))
	f.pool.Release(rec)
}

func (f *FIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.items.Len()
	if f.moved {
		n++
	}
	return n
}

func (f *FIFO) Drain(cleanup func(rec *msgpool.Record)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = false
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
