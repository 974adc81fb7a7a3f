package msgqueue

import (
	"sync"
	"time"

	"github.com/kernelbin/msgqueue/internal/cooker"
	"github.com/kernelbin/msgqueue/internal/hwqueue"
	"github.com/kernelbin/msgqueue/internal/keystate"
	"github.com/kernelbin/msgqueue/internal/msgpool"
	"github.com/kernelbin/msgqueue/internal/postedqueue"
	"github.com/kernelbin/msgqueue/internal/sentexchange"
	"github.com/kernelbin/msgqueue/internal/wake"
)

// Queue is the per-thread root: the composition
// of every component, bound to exactly one owning thread for its lifetime.
type Queue struct {
	id        ThreadID
	subsystem *Subsystem
	thread    ThreadInfo

	mu sync.Mutex

	pool       *msgpool.Pool
	keys       *keystate.Table
	wake       *wake.Counters
	posted     *postedqueue.FIFO
	hardware   *hwqueue.FIFO
	dispatcher *sentexchange.Dispatcher
	cooker     *cooker.Cooker

	refCount        int32
	threadsAttached int32
	inDestroy       bool
	inCleanup       bool

	quitPosted bool
	exitCode   int32

	capture, active, focus, menuOwner, moveSize, caret WindowHandle

	extraInfo uintptr

	sysPeek       bool
	hungSince     time.Time
	hungAfter     time.Duration
	sendTarget    *sendTarget
	event         *wakeEvent
	passwordQuery PasswordFieldQuery
}

// Option configures a Queue at construction time, following the same
// functional-option pattern used throughout this package's construction
// surface.
type Option func(*Queue)

// WithCooker wires the hardware cooker's collaborators. Omitting this
// option leaves hardware messages undispatched through the cooker gate —
// suitable for tests that only exercise posted/sent paths.
func WithCooker(cfg cooker.Config, tree WindowTree, hooks HookChain, timers Timers, ime IME, poster cooker.Poster) Option {
	return func(q *Queue) {
		q.cooker = cooker.New(uintptr(q.id), cfg, tree, hooks, timers, ime, &cursorOwnerAdapter{q: q}, poster)
	}
}

// cursorOwnerAdapter bridges the cooker's uintptr-keyed CursorOwner calls to
// the subsystem's *Queue-keyed ownership singleton. The cooker only ever
// passes its own queue's identity, so the adapter binds that queue directly
// and ignores the redundant self argument.
type cursorOwnerAdapter struct{ q *Queue }

func (a *cursorOwnerAdapter) IsOwner(uintptr) bool { return a.q.subsystem.cursor.IsOwner(a.q) }
func (a *cursorOwnerAdapter) SetOwner(uintptr)     { a.q.subsystem.cursor.SetOwner(a.q) }
func (a *cursorOwnerAdapter) SetPointerPosition(x, y int32) {
	a.q.subsystem.cursor.SetPointerPosition(x, y)
}
func (a *cursorOwnerAdapter) ResetToDefaultArrow(uintptr) {
	a.q.subsystem.cursor.ResetToDefaultArrow(a.q)
}
func (a *cursorOwnerAdapter) RecordButtonDown(now time.Time) bool {
	return a.q.subsystem.cursor.RecordButtonDown(now)
}
func (a *cursorOwnerAdapter) RecordButtonUp(now time.Time, threshold time.Duration) bool {
	return a.q.subsystem.cursor.RecordButtonUp(now, threshold)
}

var _ cooker.CursorOwner = (*cursorOwnerAdapter)(nil)

// WithWindowProc wires the window-procedure invoker used to deliver NORMAL-
// class sent messages.
func WithWindowProc(invoker WindowProcInvoker) Option {
	return func(q *Queue) { q.sendTarget.invoker = invoker }
}

// WithHungThreshold sets the wall-clock delta IsHung compares against.
// Default is 5s, matching the conventional Win32 ghost-window threshold.
func WithHungThreshold(d time.Duration) Option {
	return func(q *Queue) { q.hungAfter = d }
}

// WithSwappedMouseButtons reproduces the L/R mouse-button swap quirk in
// DownKeyState, kept intentionally for compatibility.
func WithSwappedMouseButtons() Option {
	return func(q *Queue) { q.keys = keystate.New(true) }
}

// WithPasswordFieldQuery wires the collaborator Send's pre-send policy gate
// asks whether hwnd is a password-style edit control, consulted only
// for a cross-process GET-LINE/SET-PASSWORD/GET-TEXT send.
func WithPasswordFieldQuery(query PasswordFieldQuery) Option {
	return func(q *Queue) { q.passwordQuery = query }
}

// NewQueue creates a queue bound to thread id: initializes
// key state, sets default cursor visibility, and registers with sub so
// cross-queue operations (Send, cursor ownership) can find it.
func NewQueue(sub *Subsystem, id ThreadID, thread ThreadInfo, opts ...Option) *Queue {
	pool := msgpool.New()
	q := &Queue{
		id:        id,
		subsystem: sub,
		thread:    thread,
		pool:      pool,
		keys:      keystate.New(false),
		refCount:  1,
		hungAfter: 5 * time.Second,
		sendTarget: &sendTarget{},
		event:     newWakeEvent(),
		hungSince: time.Now(),
	}
	q.wake = wake.New(func() { q.signalWake() })
	q.posted = postedqueue.New(pool, q.wake)
	q.hardware = hwqueue.New(pool, q.wake, clockAdapter{thread})
	q.dispatcher = sub.sx.NewDispatcher(q.wake, q.sendTarget)

	for _, opt := range opts {
		opt(q)
	}

	sub.register(q)
	sub.cursor.ShowCursor(q, true)
	return q
}

type clockAdapter struct{ t ThreadInfo }

func (c clockAdapter) TickCount() uint32 {
	if c.t == nil {
		return 0
	}
	return c.t.TickCount()
}

func (q *Queue) signalWake() {
	q.event.signal()
}

// ID returns the thread identity this queue is bound to.
func (q *Queue) ID() ThreadID { return q.id }

// processID returns the owning process identity, or 0 if this queue was
// built without a ThreadInfo collaborator.
func (q *Queue) processID() uintptr {
	if q.thread == nil {
		return 0
	}
	return q.thread.ProcessID()
}

// hasPasswordStyle reports whether hwnd is flagged as a password-style edit
// control, per the collaborator wired with WithPasswordFieldQuery. Absent a
// collaborator, nothing is ever treated as a password field.
func (q *Queue) hasPasswordStyle(hwnd WindowHandle) bool {
	if q.passwordQuery == nil {
		return false
	}
	return q.passwordQuery.HasPasswordStyle(hwnd)
}

// isDead reports whether this queue has begun (or finished) teardown. A
// queue flagged IN_DESTROY or IN_CLEANUP accepts no new posts or sends.
func (q *Queue) isDead() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inDestroy || q.inCleanup
}

// WakeCounters exposes this queue's wake/change bit accounting so a
// diagnostic tool can register it with a wake.Collector (cmd/msqbench wires
// this into a Prometheus /metrics endpoint); nothing in the library itself
// needs it.
func (q *Queue) WakeCounters() *wake.Counters { return q.wake }
