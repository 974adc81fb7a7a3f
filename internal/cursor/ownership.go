// Package cursor implements cursor ownership tracking: which queue may
// currently affect the rendered pointer, its visibility counter, and the
// click-lock hold-timer state the hardware cooker consults.
package cursor

import (
	"sync"
	"time"
)

// Cursor is the shape swapped by SetCursor: a renderer-owned shape handle
// plus its hotspot.
type Cursor struct {
	Handle     uintptr
	HotX, HotY int32
}

// Renderer is the narrow collaborator surface for actually moving or
// reshaping the on-screen pointer.
type Renderer interface {
	SetPointerShape(c Cursor, x, y int32)
	MovePointer(x, y int32) // (-1, -1) hides the pointer
}

// Ownership is the process-wide cursor-ownership singleton: global mutable
// state modelled as a single process-scoped subsystem struct rather than
// scattered package globals. QueueID is whatever opaque, comparable
// identity the caller uses for a queue (the root package uses a *Queue
// pointer).
//
// Click-lock's hold-timer source lives here rather than per-queue: the
// original tracks it on the global cursor-info struct, and since only one
// queue owns the cursor at a time that's equivalent to per-queue placement
// but simpler.
type Ownership[QueueID comparable] struct {
	mu       sync.Mutex
	renderer Renderer

	current Cursor
	visible int32 // visible iff >= 0

	hasOwner bool
	owner    QueueID

	pointerX, pointerY int32

	clickLockActive bool
	buttonDownAt    time.Time
	haveButtonDown  bool
}

// New returns an Ownership with no owner and the cursor hidden (counter -1;
// the first show brings it to 0, the visible threshold).
func New[QueueID comparable](renderer Renderer) *Ownership[QueueID] {
	return &Ownership[QueueID]{renderer: renderer, visible: -1}
}

// SetOwner records q as the queue whose window last received a mouse-move.
// Called by the hardware cooker on every successfully hit-tested mouse
// message.
func (o *Ownership[QueueID]) SetOwner(q QueueID) {
	o.mu.Lock()
	o.owner, o.hasOwner = q, true
	o.mu.Unlock()
}

// IsOwner reports whether q is the current cursor owner.
func (o *Ownership[QueueID]) IsOwner(q QueueID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hasOwner && o.owner == q
}

// SetPointerPosition records the last known pointer coordinates, used as the
// install point the next time SetCursor or ShowCursor needs to render.
func (o *Ownership[QueueID]) SetPointerPosition(x, y int32) {
	o.mu.Lock()
	o.pointerX, o.pointerY = x, y
	o.mu.Unlock()
}

// SetCursor swaps in c and returns the previous cursor
// (SetCursor(SetCursor(X).Previous).Previous == X). Rendering only
// happens when q currently owns the cursor and it is visible; otherwise the
// swap is recorded but deferred.
func (o *Ownership[QueueID]) SetCursor(q QueueID, c Cursor) Cursor {
	o.mu.Lock()
	old := o.current
	o.current = c
	render := o.visible >= 0 && o.hasOwner && o.owner == q
	x, y := o.pointerX, o.pointerY
	o.mu.Unlock()

	if render && o.renderer != nil {
		if c.Handle == 0 {
			o.renderer.MovePointer(-1, -1)
		} else {
			o.renderer.SetPointerShape(c, x, y)
		}
	}
	return old
}

// ResetToDefaultArrow installs the zero-value Cursor (the "default arrow"
// sentinel) for q — used when a hardware message's hit-test fails and the
// pointer must fall back to the system default.
func (o *Ownership[QueueID]) ResetToDefaultArrow(q QueueID) {
	o.SetCursor(q, Cursor{})
}

// ShowCursor adjusts the visibility counter by +1 (show) or -1 (hide) and
// returns the new value. The renderer is only instructed at the transition
// points (counter becomes 0 on show, -1 on hide), matching
// CursorOwnership.show_cursor.
func (o *Ownership[QueueID]) ShowCursor(q QueueID, show bool) int32 {
	o.mu.Lock()
	before := o.visible
	if show {
		o.visible++
	} else {
		o.visible--
	}
	after := o.visible
	cur := o.current
	x, y := o.pointerX, o.pointerY
	isOwner := o.hasOwner && o.owner == q
	o.mu.Unlock()

	if isOwner && o.renderer != nil {
		switch {
		case show && before == -1 && after == 0:
			o.renderer.SetPointerShape(cur, x, y)
		case !show && before == 0 && after == -1:
			o.renderer.MovePointer(-1, -1)
		}
	}
	return after
}

// RecordButtonDown stamps the moment a left-button-down arrives for
// click-lock timing, or — if click-lock is already active — clears it and
// reports that the button-down should be dropped.
func (o *Ownership[QueueID]) RecordButtonDown(now time.Time) (dropped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.clickLockActive {
		o.clickLockActive = false
		o.haveButtonDown = false
		return true
	}
	o.buttonDownAt = now
	o.haveButtonDown = true
	return false
}

// RecordButtonUp computes the hold duration since the matching
// RecordButtonDown; if it meets threshold, click-lock activates and the
// button-up should be dropped.
func (o *Ownership[QueueID]) RecordButtonUp(now time.Time, threshold time.Duration) (dropped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.haveButtonDown {
		return false
	}
	held := now.Sub(o.buttonDownAt)
	o.haveButtonDown = false
	if held >= threshold {
		o.clickLockActive = true
		return true
	}
	return false
}

// ClickLockActive reports whether click-lock is currently holding the
// button down on the owner's behalf.
func (o *Ownership[QueueID]) ClickLockActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clickLockActive
}

// ReleaseOwner relinquishes ownership if q currently holds it, switching the
// rendered pointer back to the default arrow first so the screen doesn't
// retain a shape belonging to a thread that no longer exists. A no-op if q
// isn't the current owner.
func (o *Ownership[QueueID]) ReleaseOwner(q QueueID) {
	if !o.IsOwner(q) {
		return
	}
	o.ResetToDefaultArrow(q)
	o.mu.Lock()
	var zero QueueID
	o.hasOwner = false
	o.owner = zero
	o.clickLockActive = false
	o.haveButtonDown = false
	o.mu.Unlock()
}
