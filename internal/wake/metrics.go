package wake

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a set of named Counters (one per queue, keyed by thread
// id) into a prometheus.Collector: Describe emits a single descriptor
// labelled by thread and category, Collect walks the live set under lock and
// emits one gauge sample per (thread, category) pair.
type Collector struct {
	mu       sync.Mutex
	queues   map[string]*Counters
	wakeDesc *prometheus.Desc
}

// NewCollector builds a Collector; namespace/subsystem follow the
// prometheus convention (e.g. "msgqueue", "wakebits").
func NewCollector(namespace, subsystem string) *Collector {
	return &Collector{
		queues: make(map[string]*Counters),
		wakeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "count"),
			"current wake-bit counter for a QS_* category on a thread's queue",
			[]string{"thread", "category"},
			nil,
		),
	}
}

// Register associates a thread id with its Counters for export. Safe to
// call concurrently with Collect.
func (c *Collector) Register(threadID string, counters *Counters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[threadID] = counters
}

// Unregister removes a thread's counters so they are no longer reported.
// Queue teardown does not call it.
func (c *Collector) Unregister(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.queues, threadID)
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.wakeDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	snapshot := make(map[string]*Counters, len(c.queues))
	for id, counters := range c.queues {
		snapshot[id] = counters
	}
	c.mu.Unlock()

	for id, counters := range snapshot {
		for _, cat := range Categories() {
			metrics <- prometheus.MustNewConstMetric(
				c.wakeDesc,
				prometheus.GaugeValue,
				float64(counters.Count(cat)),
				id, Name(cat),
			)
		}
	}
}
