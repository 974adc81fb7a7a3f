// Package wake implements the counted wake/change bit accounting that
// sits behind every other queue component: a single logical "wake" may be
// requested multiple times (post, hardware enqueue, re-post) and the summary
// bits must stay set until every contributing item has drained.
package wake

import "sync"

// Mask is a bitmask over the QS_* wake categories.
type Mask uint32

const (
	Key Mask = 1 << iota
	MouseMove
	MouseButton
	PostedMessage
	SentMessage
	HotKey
	Event
	Timer
	Paint

	Mouse   = MouseMove | MouseButton
	AllPost = PostedMessage
	None    = Mask(0)
)

// categories lists every independently-counted bit, in a fixed order used
// for iteration (metrics export, snapshotting).
var categories = []Mask{Key, MouseMove, MouseButton, PostedMessage, SentMessage, HotKey, Event, Timer, Paint}

func index(m Mask) int {
	switch m {
	case Key:
		return 0
	case MouseMove:
		return 1
	case MouseButton:
		return 2
	case PostedMessage:
		return 3
	case SentMessage:
		return 4
	case HotKey:
		return 5
	case Event:
		return 6
	case Timer:
		return 7
	case Paint:
		return 8
	default:
		return -1
	}
}

// Counters is the per-queue wake/change bit accounting. Invariant:
// wakeBits[c] == 1 iff count[c] > 0 for every category c — the summary
// bits are always derived, never set directly.
type Counters struct {
	mu      sync.Mutex
	count   [9]int32
	wake    Mask
	change  Mask
	onWake  func() // signals the owning queue's wake event; nil-safe
}

// New returns a zeroed Counters. onWake, if non-nil, is invoked with the
// lock released whenever Wake is asked to signal.
func New(onWake func()) *Counters {
	return &Counters{onWake: onWake}
}

// Wake increments the counters for every category in mask, ORs mask into
// both the wake-bits and change-bits summaries, and optionally signals the
// thread's wake event.
func (c *Counters) Wake(mask Mask, signal bool) {
	c.mu.Lock()
	for _, cat := range categories {
		if mask&cat == 0 {
			continue
		}
		i := index(cat)
		// MouseMove is coalescing: many moves fold into one logical wake, so
		// its counter is idempotent rather than additive (matches the hardware
		// queue's own at-most-one-trailing-move invariant).
		if cat == MouseMove {
			c.count[i] = 1
		} else {
			c.count[i]++
		}
	}
	c.wake |= mask
	c.change |= mask
	shouldSignal := signal
	c.mu.Unlock()

	if shouldSignal && c.onWake != nil {
		c.onWake()
	}
}

// Clear decrements the counters for every category in mask; once a
// category's counter reaches zero its wake bit is cleared. MouseMove is
// always cleared to zero unconditionally when touched: many coalesced
// moves map to a single wake.
func (c *Counters) Clear(mask Mask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cat := range categories {
		if mask&cat == 0 {
			continue
		}
		i := index(cat)
		if cat == MouseMove {
			c.count[i] = 0
		} else if c.count[i] > 0 {
			c.count[i]--
		}
		if c.count[i] == 0 {
			c.wake &^= cat
		}
	}
}

// SetExternal overrides a category's presence directly — used for Timer
// and Paint, whose readiness counts (cTimersReady / cPaintsReady) live on
// the owning thread rather than the queue and are "cleared" by reading an
// externally-maintained count rather than this struct's own counter.
func (c *Counters) SetExternal(cat Mask, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if present {
		c.wake |= cat
		c.change |= cat
	} else {
		c.wake &^= cat
	}
}

// WakeBits returns the current summary wake-bits.
func (c *Counters) WakeBits() Mask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wake
}

// ChangeBits returns and clears the change-bits newly-arrived-since-last-read
// summary (GetQueueStatus semantics).
func (c *Counters) ChangeBits() Mask {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.change
	c.change = 0
	return b
}

// Count returns the live counter for a single category, for diagnostics and
// metrics export.
func (c *Counters) Count(cat Mask) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := index(cat)
	if i < 0 {
		return 0
	}
	return c.count[i]
}

// Reset zeroes every counter and both summary masks — used by teardown
// (step 5) once every list a count could refer to has already been drained.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.count {
		c.count[i] = 0
	}
	c.wake = 0
	c.change = 0
}

// Categories exposes the fixed iteration order for exporters.
func Categories() []Mask { return categories }

// Name returns a short diagnostic name for a single-bit mask.
func Name(cat Mask) string {
	switch cat {
	case Key:
		return "key"
	case MouseMove:
		return "mousemove"
	case MouseButton:
		return "mousebutton"
	case PostedMessage:
		return "postedmessage"
	case SentMessage:
		return "sendmessage"
	case HotKey:
		return "hotkey"
	case Event:
		return "event"
	case Timer:
		return "timer"
	case Paint:
		return "paint"
	default:
		return "unknown"
	}
}
