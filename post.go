package msgqueue

import (
	"strconv"

	"github.com/kernelbin/msgqueue/internal/msgpool"
	"github.com/kernelbin/msgqueue/internal/qlog"
)

// wmQuit is WM_QUIT's message code, synthesized by the peek path rather
// than ever appearing as a posted-list record.
const wmQuit = 0x0012

// QueuedEvent tags a posted record with ancillary bookkeeping the queue
// must honor if the message is torn down undelivered.
type QueuedEvent uint32

const (
	// QueuedEventNone is the ordinary case: extraInfo is an opaque scalar.
	QueuedEventNone QueuedEvent = iota
	// QueuedEventOwnsExtra marks extraInfo as an allocation whose lifetime
	// is tied to the record: teardown releases it along with the record
	// when draining a queue that never delivered the message.
	QueuedEventOwnsExtra
)

// Post enqueues a fire-and-forget message addressed to window on target's
// posted-message FIFO, waking its wake event.
// Set hardware to route through the hardware queue's move-coalescing FIFO
// instead (the hit-tested mouse/keyboard path), or leave it false for
// the ordinary posted path. queuedEvent tags records whose extraInfo the
// queue owns (see QueuedEventOwnsExtra). Returns false, dropping the
// message without enqueuing it, if target has begun or finished teardown.
func (q *Queue) Post(target *Queue, window WindowHandle, code uint32, wParam, lParam uintptr, extraInfo uintptr, queuedEvent QueuedEvent, wakeMask Mask, hardware bool) bool {
	if target.isDead() {
		tlog := qlog.Thread(strconv.FormatUint(uint64(target.id), 10))
		tlog.Debug().Uint32("code", code).Msg("dropping post to a destroyed queue")
		return false
	}

	payload := msgpool.Record{
		Handle:   uintptr(window),
		Code:     code,
		WParam:   wParam,
		LParam:   lParam,
		ExtraPtr: extraInfo,
		OwnsHeap: queuedEvent == QueuedEventOwnsExtra,
	}
	if target.thread != nil {
		payload.Time = target.thread.TickCount()
	}

	if hardware {
		target.hardware.PostButton(payload, wakeMask, uintptr(q.id))
		return true
	}
	target.posted.Post(payload, wakeMask, uintptr(q.id))
	return true
}

// PostMouseMove enqueues a mouse-move sample onto target's hardware queue,
// coalescing with any still-undelivered trailing move.
func (q *Queue) PostMouseMove(target *Queue, x, y int32, extraInfo uint32) {
	if target.isDead() {
		return
	}
	target.hardware.PostMove(x, y, extraInfo, uintptr(q.id))
}

// PostQuit marks target as having a pending WM_QUIT with exitCode packed
// into WParam, the idiomatic way to unwind a message loop. Quit is never
// held as an ordinary FIFO record: it's delivered by Peek synthesizing it
// once every genuinely queued message has been drained, the way
// PeekMessage/GetMessage deliver WM_QUIT.
func (q *Queue) PostQuit(target *Queue, exitCode int32) {
	if target.isDead() {
		return
	}
	target.mu.Lock()
	already := target.quitPosted
	target.quitPosted = true
	target.exitCode = exitCode
	target.mu.Unlock()

	if !already {
		target.wake.Wake(QS_POSTMESSAGE, true)
	}
}

// QuitRequested reports whether PostQuit has already been called on this
// queue, along with the exit code it carried.
func (q *Queue) QuitRequested() (int32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exitCode, q.quitPosted
}
