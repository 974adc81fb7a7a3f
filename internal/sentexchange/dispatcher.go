package sentexchange

import (
	"container/list"
	"context"
	"time"

	"github.com/kernelbin/msgqueue/internal/qlog"
	"github.com/kernelbin/msgqueue/internal/wake"
)

// Target is the narrow collaborator surface a Dispatcher needs to actually
// deliver a record once it reaches the front of the receiver's inbox —
// window procedure invocation, hook chain consultation, and hook-module
// injection, corresponding to the three HookClass variants. The concrete
// implementations (WindowTree, HookChain) live in the root package; keeping
// the interface here narrow lets sentexchange stay independently testable.
type Target interface {
	InvokeWindowProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr
	CallHook(hhook uintptr, code int, wParam, lParam uintptr) uintptr
	CallInjectedModule(hwnd uintptr, msg uint32, wParam uintptr) uintptr
}

// Dispatcher is the per-thread sent-message endpoint (one per Queue),
// holding the inbox/outbox/local-dispatching triple for its thread.
type Dispatcher struct {
	lock *subsystemLock

	inbox            *list.List // records sent TO this thread, awaiting dispatch
	localDispatching *list.List // records this thread has popped off inbox and is running
	outbox           *list.List // records this thread sent and is still tracking (blocking or callback)

	wake    *wake.Counters
	wakeOwn chan struct{} // buffered(1): "something was appended to my inbox"
	apc     chan func()   // buffered: pending user-mode APCs
	dying   chan struct{} // closed exactly once, on Teardown

	current *Record // the record this dispatcher is currently inside DispatchOne for, if any
	depth   int     // nested DispatchOne frames; >0 while a target invocation is on the stack

	target Target
}

// subsystemLock is the single exclusive lock shared by every Dispatcher in
// one subsystem. It is a plain mutex; Dispatcher methods drop it around actual
// waits and window-proc invocation and reacquire it on return.
type subsystemLock struct{ ch chan struct{} }

func newSubsystemLock() *subsystemLock {
	l := &subsystemLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

func (l *subsystemLock) Lock()   { <-l.ch }
func (l *subsystemLock) Unlock() { l.ch <- struct{}{} }

// Subsystem owns the lock shared by every Dispatcher it creates.
type Subsystem struct {
	lock *subsystemLock
}

// NewSubsystem returns a Subsystem ready to mint Dispatchers.
func NewSubsystem() *Subsystem {
	return &Subsystem{lock: newSubsystemLock()}
}

// NewDispatcher returns a Dispatcher bound to counters (this thread's wake
// accounting) and target (this thread's delivery surface).
func (s *Subsystem) NewDispatcher(counters *wake.Counters, target Target) *Dispatcher {
	return &Dispatcher{
		lock:             s.lock,
		inbox:            list.New(),
		localDispatching: list.New(),
		outbox:           list.New(),
		wake:             counters,
		wakeOwn:          make(chan struct{}, 1),
		apc:              make(chan func(), 8),
		dying:            make(chan struct{}),
		target:           target,
	}
}

func (d *Dispatcher) signalOwnWake() {
	select {
	case d.wakeOwn <- struct{}{}:
	default:
	}
}

// PostAPC enqueues fn for delivery the next time d waits inside Send. Mirrors
// KeInsertQueueApc's user-APC path.
func (d *Dispatcher) PostAPC(fn func()) bool {
	select {
	case d.apc <- fn:
		return true
	default:
		return false
	}
}

// SendAsync enqueues rec on the receiver's inbox without any wait — the
// fire-and-forget and callback-style variants. rec.Receiver must already be set; rec.CallbackSender is set to d
// only when cb is non-nil (callback-style sends still need to know who to
// call back on).
func (d *Dispatcher) SendAsync(rec *Record, cb CompletionCallback, cbCtx uintptr) {
	rec.Callback = cb
	rec.CallbackCtx = cbCtx
	if cb != nil {
		rec.CallbackSender = d
	}

	d.lock.Lock()
	rec.state = StateInInbox
	rec.inboxElem = rec.Receiver.inbox.PushBack(rec)
	d.lock.Unlock()

	rec.Receiver.wake.Wake(wake.SentMessage, true)
	rec.Receiver.signalOwnWake()
}

// Send performs a blocking or non-blocking synchronous send.
// blocking selects the wait set {completion, receiver-death, timeout, ctx
// cancellation, user APC}; the
// non-blocking variant additionally waits on its own wake event so it can
// pump its own inbox without deadlocking a receiver that is itself blocked
// sending back to d (the classic cross-send scenario).
func (d *Dispatcher) Send(ctx context.Context, rec *Record, timeout time.Duration, blocking bool) (Status, uintptr) {
	rec.completion = make(chan uintptr, 1)

	d.lock.Lock()
	rec.state = StateInInbox
	rec.inboxElem = rec.Receiver.inbox.PushBack(rec)
	rec.outboxElem = d.outbox.PushBack(rec)
	d.lock.Unlock()

	rec.Receiver.wake.Wake(wake.SentMessage, true)
	rec.Receiver.signalOwnWake()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	status := d.wait(ctx, rec, blocking, timeoutCh)

	for d.DispatchOne() {
	}

	return status, rec.Result
}

func (d *Dispatcher) wait(ctx context.Context, rec *Record, blocking bool, timeoutCh <-chan time.Time) Status {
	for {
		if blocking {
			select {
			case result := <-rec.completion:
				rec.Result = result
				return StatusSuccess
			case <-rec.Receiver.dying:
				return d.handleReceiverDied(rec)
			case <-timeoutCh:
				return d.handleTimeout(rec)
			case <-ctx.Done():
				return d.handleTimeout(rec)
			case fn := <-d.apc:
				return d.handleUserAPC(rec, fn)
			}
		}
		select {
		case result := <-rec.completion:
			rec.Result = result
			return StatusSuccess
		case <-rec.Receiver.dying:
			return d.handleReceiverDied(rec)
		case <-timeoutCh:
			return d.handleTimeout(rec)
		case <-ctx.Done():
			return d.handleTimeout(rec)
		case fn := <-d.apc:
			return d.handleUserAPC(rec, fn)
		case <-d.wakeOwn:
			for d.DispatchOne() {
			}
		}
	}
}

// handleTimeout implements the cancellation matrix's two outcomes: if the
// record is still sitting unclaimed in the receiver's inbox, the sender
// unlinks and frees it outright. If the receiver has already popped it into
// local-dispatching, the sender can no longer safely free it — it orphans
// the record instead, clearing the fields the receiver must not touch again
// (callback pointer, completion channel).
func (d *Dispatcher) handleTimeout(rec *Record) Status {
	d.detach(rec)
	return StatusTimeout
}

// handleUserAPC delivers a user-mode APC queued at the sender: fn runs on
// the sender's thread, the record is detached exactly as a timeout would
// detach it, and the caller returns StatusUserAPC so the application can
// observe the interruption rather than mistake it for a completed send.
func (d *Dispatcher) handleUserAPC(rec *Record, fn func()) Status {
	fn()
	d.detach(rec)
	return StatusUserAPC
}

// detach is the two-branch abandonment shared by timeout and user-APC
// interruption: free outright while the record is still unclaimed in the
// receiver's inbox, orphan once the receiver has claimed it.
func (d *Dispatcher) detach(rec *Record) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if rec.inboxElem != nil {
		rec.Receiver.inbox.Remove(rec.inboxElem)
		rec.inboxElem = nil
		rec.Receiver.wake.Clear(wake.SentMessage)
		if rec.outboxElem != nil {
			d.outbox.Remove(rec.outboxElem)
			rec.outboxElem = nil
		}
		rec.state = StateFreed
		rec.completion = nil
		return
	}

	rec.state = StateOrphaned
	rec.Callback = nil
	rec.completion = nil
	if rec.outboxElem != nil {
		d.outbox.Remove(rec.outboxElem)
		rec.outboxElem = nil
	}
	qlog.Logger().Warn().Str("seq", rec.Seq.String()).Uint32("msg", rec.Msg).
		Msg("orphaning sent record already claimed by receiver")
}

// handleReceiverDied implements the "receiver-death" cancellation branch: any
// record still addressed to a torn-down receiver is unreachable, so the
// sender reclaims it unconditionally.
func (d *Dispatcher) handleReceiverDied(rec *Record) Status {
	d.lock.Lock()
	defer d.lock.Unlock()
	if rec.inboxElem != nil {
		rec.Receiver.inbox.Remove(rec.inboxElem)
		rec.inboxElem = nil
	}
	if rec.outboxElem != nil {
		d.outbox.Remove(rec.outboxElem)
		rec.outboxElem = nil
	}
	rec.state = StateFreed
	rec.completion = nil
	qlog.Logger().Debug().Str("seq", rec.Seq.String()).Uint32("msg", rec.Msg).
		Msg("dropping sent record after receiver died")
	return StatusReceiverDied
}

// DispatchOne pops and delivers the oldest record in d's inbox, branching
// on HookClass, and returns false when the inbox is empty.
func (d *Dispatcher) DispatchOne() bool {
	d.lock.Lock()
	e := d.inbox.Front()
	if e == nil {
		d.lock.Unlock()
		return false
	}
	d.inbox.Remove(e)
	rec := e.Value.(*Record)
	rec.inboxElem = nil
	rec.state = StateDispatching
	d.wake.Clear(wake.SentMessage)

	// Callback round-trip: the receiver already produced a result and
	// re-queued this record onto our own inbox (see below); we are the
	// original sender, dispatching it a second time purely to invoke the
	// callback on our own thread.
	if rec.HasResult && rec.CallbackSender == d {
		callback := rec.Callback
		rec.Callback = nil // prevent re-entry if something re-queues it again
		rec.state = StateFreed
		d.lock.Unlock()
		if callback != nil {
			callback(rec.Hwnd, rec.Msg, rec.CallbackCtx, rec.Result)
		}
		return true
	}

	rec.localElem = d.localDispatching.PushBack(rec)
	prevCurrent := d.current
	d.current = rec
	d.depth++
	d.lock.Unlock()

	var result uintptr
	switch rec.HookClass {
	case Hook:
		result = d.target.CallHook(rec.HHook, rec.HookCode, rec.WParam, rec.LParam)
	case InjectModule:
		result = d.target.CallInjectedModule(rec.Hwnd, rec.Msg, rec.WParam)
	default:
		result = d.target.InvokeWindowProc(rec.Hwnd, rec.Msg, rec.WParam, rec.LParam)
	}

	d.lock.Lock()
	d.depth--
	d.localDispatching.Remove(rec.localElem)
	rec.localElem = nil
	if d.current == rec {
		d.current = prevCurrent
	}
	// Detach from the sender's outbox if still linked; a timeout or the
	// sender's own teardown may already have removed it.
	if rec.Sender != nil && rec.outboxElem != nil {
		rec.Sender.outbox.Remove(rec.outboxElem)
		rec.outboxElem = nil
	}
	orphaned := rec.state == StateOrphaned
	if !orphaned && rec.HasResult {
		// Reply already stashed an early result; keep it instead of
		// overwriting with the window procedure's return value.
		result = rec.Result
	}
	rec.HasResult = true
	rec.Result = result
	completion := rec.completion
	callback := rec.Callback
	callbackSender := rec.CallbackSender
	d.lock.Unlock()

	if orphaned {
		d.lock.Lock()
		rec.state = StateFreed
		d.lock.Unlock()
		return true
	}

	if completion != nil {
		d.lock.Lock()
		rec.state = StateFreed
		d.lock.Unlock()
		completion <- result
		return true
	}

	if callback != nil && callbackSender != nil {
		// Re-queue onto the callback-sender's own inbox so the callback runs
		// on its thread, not ours.
		d.lock.Lock()
		rec.state = StateInInbox
		rec.inboxElem = callbackSender.inbox.PushBack(rec)
		d.lock.Unlock()
		callbackSender.wake.Wake(wake.SentMessage, true)
		callbackSender.signalOwnWake()
		return true
	}

	d.lock.Lock()
	rec.state = StateFreed
	d.lock.Unlock()
	return true
}

// Reply stashes result on the record d is currently dispatching, if any and
// if it hasn't already received one — the early-return shortcut: the eventual completion path reads this instead of the window
// procedure's own return value. Returns false if there is nothing currently
// dispatching or it already has a result.
func (d *Dispatcher) Reply(result uintptr) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.current == nil || d.current.HasResult {
		return false
	}
	d.current.Result = result
	d.current.HasResult = true
	return true
}

// Teardown closes d.dying, waking every sender currently blocked waiting on
// this receiver.
func (d *Dispatcher) Teardown() {
	close(d.dying)
}

// PendingInbound reports the number of records still queued for delivery to
// this thread — used by IsHung-style liveness checks.
func (d *Dispatcher) PendingInbound() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.inbox.Len()
}

// InSendMessage reports whether this thread is currently somewhere inside a
// DispatchOne call — directly or, for a window procedure that pumps its own
// sent-message inbox recursively, nested several frames deep.
func (d *Dispatcher) InSendMessage() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.depth > 0
}

// TeardownDrain discards every record still sitting in this dispatcher's
// inbox or local-dispatching list. A sender blocked on one of these is
// already woken by Teardown's close(dying) via the receiver-death branch of
// wait(); this only detaches callbacks and empties the lists so nothing
// still references the torn-down dispatcher afterward.
func (d *Dispatcher) TeardownDrain() {
	d.lock.Lock()
	defer d.lock.Unlock()

	for e := d.inbox.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*Record)
		rec.inboxElem = nil
		rec.state = StateFreed
		rec.Callback = nil
	}
	d.inbox.Init()

	for e := d.localDispatching.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*Record)
		rec.localElem = nil
		rec.state = StateFreed
		rec.Callback = nil
	}
	d.localDispatching.Init()

	d.wake.Clear(wake.SentMessage)
}

// TeardownOutbox walks records this dispatcher sent and is still tracking.
// The receiver may still be mid-dispatch on one of these, so the record
// itself is left alone — only the completion channel and callback are
// detached, so a late DispatchOne finds nothing to write a result into.
func (d *Dispatcher) TeardownOutbox() {
	d.lock.Lock()
	defer d.lock.Unlock()

	for e := d.outbox.Front(); e != nil; e = e.Next() {
		rec := e.Value.(*Record)
		rec.outboxElem = nil
		if rec.completion != nil {
			// The sender died with a result still outstanding. The receiver
			// may yet finish dispatching this record; with completion and
			// Callback detached it will simply have nowhere to deliver the
			// result, and that is never surfaced as an error.
			qlog.Logger().Debug().Str("seq", rec.Seq.String()).Uint32("msg", rec.Msg).
				Msg("discarding result for a record whose sender died")
		}
		rec.completion = nil
		rec.Callback = nil
	}
	d.outbox.Init()
}
