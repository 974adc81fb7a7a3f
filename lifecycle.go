package msgqueue

import (
	"strconv"

	"github.com/kernelbin/msgqueue/internal/msgpool"
	"github.com/kernelbin/msgqueue/internal/qlog"
)

// AddRef increments the queue's reference count: a queue stays alive as
// long as any thread still references it, even after its owning thread has
// begun detaching.
func (q *Queue) AddRef() {
	q.mu.Lock()
	q.refCount++
	q.mu.Unlock()
}

// Attach records that another thread has attached its input to this queue
// (AttachThreadInput), bumping threadsAttached. The count is bookkeeping
// only: Release and teardown do not consult it, so teardown runs once the
// reference count reaches zero whatever threadsAttached holds.
func (q *Queue) Attach() {
	q.mu.Lock()
	q.threadsAttached++
	q.mu.Unlock()
}

// Detach reverses Attach.
func (q *Queue) Detach() {
	q.mu.Lock()
	if q.threadsAttached > 0 {
		q.threadsAttached--
	}
	q.mu.Unlock()
}

// Release drops a reference, running Teardown exactly once when the count
// reaches zero. Returns true if this call triggered teardown.
func (q *Queue) Release() bool {
	q.mu.Lock()
	q.refCount--
	shouldTeardown := q.refCount <= 0 && !q.inDestroy
	if shouldTeardown {
		q.inDestroy = true
	}
	q.mu.Unlock()

	if shouldTeardown {
		q.teardown()
		return true
	}
	return false
}

// teardown drains every component in the order the lifecycle section
// requires: posted messages first (they may own ancillary heap memory via
// Record.OwnsHeap), then the sent-message inbox/local-dispatching lists,
// then the outbox this queue still has in flight, then wake accounting,
// then global slot and cursor release, finally unregistering from the
// subsystem. No step depends on a later one, so an early teardown call
// racing a late Release only ever runs once thanks to inDestroy above.
func (q *Queue) teardown() {
	q.mu.Lock()
	q.inCleanup = true
	q.mu.Unlock()

	// Step 1: posted messages, releasing any ancillary heap-owning payload.
	var dropped int
	q.posted.Drain(func(rec *msgpool.Record) { dropped++; releaseOwnedHeap(rec) })
	q.hardware.Drain(func(rec *msgpool.Record) { dropped++; releaseOwnedHeap(rec) })
	if dropped > 0 {
		tlog := qlog.Thread(strconv.FormatUint(uint64(q.id), 10))
		tlog.Debug().Int("dropped", dropped).Msg("dropping unread queue messages on teardown")
	}

	// Steps 2-3: sent-message inbox and local-dispatching list.
	q.dispatcher.Teardown()
	q.dispatcher.TeardownDrain()

	// Step 4: outstanding sends this queue originated.
	q.dispatcher.TeardownOutbox()

	// Step 5: wake/change bits and per-category counters.
	q.wake.Reset()

	// Step 6: unhook from global slots this queue might still occupy.
	q.subsystem.clearGlobalSlot(q)

	// Step 7: release the cursor reference, switching the rendered pointer
	// away first if this queue was the owner.
	q.subsystem.cursor.ReleaseOwner(q)
	q.subsystem.cursor.ShowCursor(q, false)

	// Step 8: dereference the queue from the subsystem's registry. The
	// struct itself is freed by the garbage collector once the caller drops
	// its own last pointer.
	q.event.close()
	q.subsystem.unregister(q.id)
}

func releaseOwnedHeap(rec *msgpool.Record) {
	if rec.OwnsHeap {
		rec.ExtraPtr = 0
		rec.OwnsHeap = false
	}
}

// clearGlobalSlot clears the subsystem's foreground slot if this queue
// holds it. Cursor ownership, the other subsystem-wide slot, is released
// separately by teardown's step 7.
func (s *Subsystem) clearGlobalSlot(q *Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.foreground == q {
		s.foreground = nil
	}
}
