// Package msgqueue implements the per-thread windowing message queue: the
// rendezvous point between hardware input, inter-thread window-message
// delivery, and the application message loop.
package msgqueue

import (
	"github.com/kernelbin/msgqueue/internal/cooker"
	"github.com/kernelbin/msgqueue/internal/sentexchange"
	"github.com/kernelbin/msgqueue/internal/wake"
)

// WindowHandle is a weak, opaque window identity, re-exported from the
// cooker package so callers never need to import it directly.
type WindowHandle = cooker.WindowHandle

// ThreadID identifies a thread's queue. Callers mint their own; the
// subsystem only ever compares them for equality and uses them as map keys.
type ThreadID uint64

// Mask is the QS_* wake-bit category set, re-exported from internal/wake.
type Mask = wake.Mask

// Wake-bit categories.
const (
	QS_KEY          = wake.Key
	QS_MOUSEMOVE    = wake.MouseMove
	QS_MOUSEBUTTON  = wake.MouseButton
	QS_MOUSE        = wake.Mouse
	QS_POSTMESSAGE  = wake.PostedMessage
	QS_SENDMESSAGE  = wake.SentMessage
	QS_HOTKEY       = wake.HotKey
	QS_EVENT        = wake.Event
	QS_TIMER        = wake.Timer
	QS_PAINT        = wake.Paint
)

// Message is the MessageRecord shape exposed to callers of Peek. It is a value copy of the pool-owned record: when Peek returns it
// with Remove set, the underlying record has already been released back to
// the pool; without Remove the record stays queued.
type Message struct {
	Window    WindowHandle
	Code      uint32
	WParam    uintptr
	LParam    uintptr
	Time      uint32
	PointX    int32
	PointY    int32
	ExtraInfo uintptr
}

// HookClass discriminates how a sent message is delivered, re-exported from
// internal/sentexchange.
type HookClass = sentexchange.HookClass

const (
	HookNormal       = sentexchange.Normal
	HookIsHook       = sentexchange.Hook
	HookInjectModule = sentexchange.InjectModule
)

// StateWindowKind enumerates the per-queue weak window references
// SetStateWindow can update.
type StateWindowKind int

const (
	StateCapture StateWindowKind = iota
	StateActive
	StateFocus
	StateMenuOwner
	StateMoveSize
	StateCaret
)
