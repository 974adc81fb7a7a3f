package main

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kernelbin/msgqueue"
	"github.com/kernelbin/msgqueue/internal/wake"
)

func threadLabel(id msgqueue.ThreadID) string { return strconv.FormatUint(uint64(id), 10) }

func wakeCounters(q *msgqueue.Queue) *wake.Counters { return q.WakeCounters() }

// fakeThread is the ThreadInfo collaborator for benchmark queues: a
// monotonically increasing tick count, nothing else.
type fakeThread struct{ tick uint32 }

func (f *fakeThread) TickCount() uint32  { f.tick++; return f.tick }
func (f *fakeThread) ProcessID() uintptr { return 1 }

// worker is one simulated application thread: its own queue, its own
// window, and the window procedure that counts sent-message deliveries.
type worker struct {
	id      msgqueue.ThreadID
	queue   *msgqueue.Queue
	window  msgqueue.WindowHandle
	proc    *echoWindowProc
	poster  *countingPoster
}

// Bench drives a fleet of workers that post, send, and hardware-enqueue
// messages to each other on a fixed tick, the message-queue analogue of a
// load generator: it exercises every public entry point (Post, PostMouseMove,
// Send, Peek, DispatchOneSent) the way a real application loop would, just
// without a human typing or moving a mouse.
type Bench struct {
	sub     *msgqueue.Subsystem
	tree    *flatWindowTree
	collector *wake.Collector

	mu      sync.Mutex
	workers []*worker
	tuning  Tuning

	posted    int64
	sent      int64
	sendOK    int64
	sendErr   int64
	delivered int64
}

// NewBench wires a subsystem and N workers, each with its own cooker bound
// to a flat one-window-per-thread WindowTree.
func NewBench(tn Tuning, collector *wake.Collector) *Bench {
	b := &Bench{
		sub:       msgqueue.NewSubsystem(silentRenderer{}),
		tree:      newFlatWindowTree(),
		collector: collector,
		tuning:    tn,
	}
	b.resize(tn.Threads)
	return b
}

func (b *Bench) resize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.workers); i < n; i++ {
		id := msgqueue.ThreadID(i + 1)
		win := msgqueue.WindowHandle(uintptr(i) + 1)
		proc := &echoWindowProc{}
		poster := &countingPoster{}

		q := msgqueue.NewQueue(b.sub, id, &fakeThread{},
			msgqueue.WithWindowProc(proc),
			msgqueue.WithCooker(b.tuning.cookerConfig(), b.tree, noopHooks{}, noopTimers{}, passthroughIME{}, poster),
		)
		poster.self, poster.target = q, q
		b.tree.bind(win, uintptr(id))

		if b.collector != nil {
			b.collector.Register(threadLabel(id), wakeCounters(q))
		}

		w := &worker{id: id, queue: q, window: win, proc: proc, poster: poster}
		b.workers = append(b.workers, w)
	}
}

// Retune applies a freshly hot-reloaded Tuning: the per-tick post and send
// counts take effect on the next tick. The tick interval is read once when
// Run starts, and the thread count and cooker tunables (double-click
// interval/slop, hover geometry, click-lock threshold) only shape the
// workers NewBench creates; Retune adds no workers and leaves existing
// cookers unchanged.
func (b *Bench) Retune(tn Tuning) {
	b.mu.Lock()
	b.tuning = tn
	b.mu.Unlock()
}

// Run drives the benchmark until ctx is cancelled, ticking at the interval
// configured when Run starts and reporting aggregate counters on return.
func (b *Bench) Run(ctx context.Context) Summary {
	ticker := time.NewTicker(b.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return b.summary()
		case <-ticker.C:
			b.tick()
		}
	}
}

func (b *Bench) tickInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tuning.TickMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(b.tuning.TickMS) * time.Millisecond
}

func (b *Bench) tick() {
	b.mu.Lock()
	workers := append([]*worker(nil), b.workers...)
	tn := b.tuning
	b.mu.Unlock()
	if len(workers) < 2 {
		return
	}

	for i, w := range workers {
		peer := workers[(i+1)%len(workers)]

		for p := 0; p < tn.PostsPerTick; p++ {
			w.queue.PostMouseMove(peer.queue, int32(p), int32(p), 0)
			w.queue.Post(peer.queue, peer.window, 0x0201, 1, 2, 0, msgqueue.QueuedEventNone, msgqueue.QS_MOUSEBUTTON, true)
			atomic.AddInt64(&b.posted, 1)
		}

		for s := 0; s < tn.SendsPerTick; s++ {
			atomic.AddInt64(&b.sent, 1)
			go func(sender, receiver *worker) {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_, err := sender.queue.Send(ctx, receiver.queue, receiver.window, 0x0111, 3, 4, msgqueue.SendOptions{Blocking: false, Timeout: 2 * time.Second})
				if err != nil {
					atomic.AddInt64(&b.sendErr, 1)
				} else {
					atomic.AddInt64(&b.sendOK, 1)
				}
			}(w, peer)
		}

		for w.queue.DispatchOneSent() {
		}
		for {
			_, ok := w.queue.Peek(msgqueue.PeekFilter{Remove: true})
			if !ok {
				break
			}
			w.queue.MarkDispatched()
		}
	}
}

// Summary is the benchmark's final report.
type Summary struct {
	Workers   int
	Posted    int64
	Sent      int64
	SendOK    int64
	SendErr   int64
	Delivered int64
}

func (b *Bench) summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	var delivered int64
	for _, w := range b.workers {
		delivered += atomic.LoadInt64(&w.proc.delivered)
	}
	return Summary{
		Workers:   len(b.workers),
		Posted:    atomic.LoadInt64(&b.posted),
		Sent:      atomic.LoadInt64(&b.sent),
		SendOK:    atomic.LoadInt64(&b.sendOK),
		SendErr:   atomic.LoadInt64(&b.sendErr),
		Delivered: delivered,
	}
}
