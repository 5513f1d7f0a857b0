package persist

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts config writes and background save failures.
// A Metrics value is owned by one store and shared with its Saver.
type Metrics struct {
	writes   atomic.Uint64
	failures atomic.Uint64

	startOnce sync.Once
	start     time.Time
	now       func() time.Time
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{now: time.Now}
}

// RecordWrite counts a completed write and returns the total so far.
// Failed writes go to RecordFailure instead.
func (m *Metrics) RecordWrite() uint64 {
	m.startOnce.Do(func() { m.start = m.clock() })
	return m.writes.Add(1)
}

// RecordFailure counts a failed background save and returns the total so far.
func (m *Metrics) RecordFailure() uint64 {
	return m.failures.Add(1)
}

// Writes returns the number of completed writes.
func (m *Metrics) Writes() uint64 {
	return m.writes.Load()
}

// Failures returns the number of failed background saves.
func (m *Metrics) Failures() uint64 {
	return m.failures.Load()
}

// WriteRate returns writes per minute since the first write.
func (m *Metrics) WriteRate() float64 {
	count := m.writes.Load()
	if count == 0 {
		return 0
	}
	elapsed := m.clock().Sub(m.start)
	if elapsed < time.Second {
		return 0
	}
	return float64(count) / elapsed.Minutes()
}

func (m *Metrics) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}
