// Package sentexchange implements the cross-thread synchronous send/reply
// protocol, the hardest subsystem in the queue: completion signalling,
// timeouts, receiver death, and the orphaning rules that keep a sender from
// ever blocking on a dead receiver.
package sentexchange

import (
	"container/list"

	"github.com/rs/xid"
)

// HookClass discriminates how a dispatched record is delivered: an ordinary
// window-procedure call, a hook-chain call, or a hook-module load request.
type HookClass int

const (
	Normal HookClass = iota
	Hook
	InjectModule
)

// State is the record's lifecycle state machine: a SentRecord is co-owned
// by sender and receiver with explicit ownership transfer at specific
// points, modelled explicitly here rather than left to convention.
type State int

const (
	StateInInbox State = iota
	StateDispatching
	StateAwaitingCallback
	StateOrphaned
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateInInbox:
		return "in-inbox"
	case StateDispatching:
		return "dispatching"
	case StateAwaitingCallback:
		return "awaiting-callback"
	case StateOrphaned:
		return "orphaned"
	case StateFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// Status is the NTSTATUS-shaped result returned from Send.
type Status int

const (
	StatusSuccess Status = iota
	StatusTimeout
	StatusReceiverDied
	StatusUserAPC
	StatusUnsuccessful
	StatusInsufficientResources
)

// CompletionCallback matches SENDASYNCPROC: invoked on the original sender's
// thread once a callback-style sent message has a result.
type CompletionCallback func(hwnd uintptr, msg uint32, ctx uintptr, result uintptr)

// Record is one in-flight sent message, co-owned by sender and receiver.
// All field access happens with the owning Subsystem's lock held; Record
// itself carries no mutex — it is modelled as a state machine under the
// single user lock, not ad hoc per-record locking.
type Record struct {
	// Seq is a short, sortable, lock-free identifier stamped once at
	// construction — a correlation key for logging a record across the
	// inbox/outbox/local-dispatching hops it takes, cheap enough to mint on
	// every send.
	Seq xid.ID

	Hwnd            uintptr
	Msg             uint32
	WParam, LParam  uintptr
	HasPackedLParam bool
	HookClass       HookClass

	// HHook and HookCode are only meaningful when HookClass == Hook — the
	// hook handle and HC_* code that a WH_* hook call needs, kept separate
	// from Hwnd/Msg/WParam/LParam so a Normal record's fields stay
	// unambiguous.
	HHook    uintptr
	HookCode int

	Sender           *Dispatcher // weak; the root package sets it for Send and SendAsync alike
	CallbackSender   *Dispatcher // weak; set only for callback-style sends
	Receiver         *Dispatcher // weak; always set

	Callback    CompletionCallback
	CallbackCtx uintptr

	HasResult bool
	Result    uintptr

	completion chan uintptr // buffered(1); nil for async/callback records

	state State

	// list-node positions: a record appears in
	// exactly one of {receiver inbox, receiver local-dispatching}, plus
	// possibly the sender's dispatching-outbox simultaneously.
	inboxElem    *list.Element
	localElem    *list.Element
	outboxElem   *list.Element
}

// State returns the record's current lifecycle state (lock must be held by
// caller — exported for tests and diagnostics).
func (r *Record) State() State { return r.state }

// NewRecord stamps a fresh Seq and returns an otherwise-zero Record ready
// for its caller to fill in Hwnd/Msg/WParam/LParam/HookClass/Sender/
// Receiver before handing it to SendAsync or Send.
func NewRecord() *Record {
	return &Record{Seq: xid.New()}
}
