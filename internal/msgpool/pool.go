// Package msgpool implements the fixed-size allocator for message records:
// a single-size-class free list backed by sync.Pool, recycling records on
// release instead of handing every message its own allocation.
package msgpool

import (
	"sync"

	"github.com/kernelbin/msgqueue/internal/qlog"
)

// Record is the pool-owned payload. Origin doubles as the double-free
// sentinel: it is nonzero for every live record and zeroed on release.
type Record struct {
	Handle   uintptr
	Code     uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	PointX   int32
	PointY   int32
	ExtraPtr uintptr
	WakeMask uint32
	Origin   uintptr // weak back-reference to the owning thread; 0 once released
	OwnsHeap bool    // true if LParam owns a heap allocation that must be freed with the record
	Cooked   bool    // hardware records only: true once HardwareCooker has run and Handle/Code/WParam/LParam hold its verdict
}

// Pool is a fixed-size slab allocator for Record.
type Pool struct {
	pool sync.Pool
}

// New returns a ready-to-use Pool.
func New() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() interface{} { return &Record{} },
		},
	}
}

// Acquire returns a zeroed Record, either recycled or freshly allocated.
func (p *Pool) Acquire() *Record {
	rec := p.pool.Get().(*Record)
	*rec = Record{}
	return rec
}

// Release returns rec to the pool, checking the Origin double-free sentinel
// before clearing the back-reference and recycling.
func (p *Pool) Release(rec *Record) {
	if rec == nil {
		return
	}
	if rec.Origin == 0 {
		// Double free. Log and keep going; a library must not panic its
		// host process over a caller's lost record.
		qlog.Logger().Warn().Uint32("code", rec.Code).Msg("double free of message record")
		return
	}
	rec.Origin = 0
	p.pool.Put(rec)
}
