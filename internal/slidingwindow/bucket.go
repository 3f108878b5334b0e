package slidingwindow

import "sync/atomic"

// MetricEvent identifies one of the six counters a Bucket accumulates.
type MetricEvent int

const (
	MetricPass MetricEvent = iota
	MetricBlock
	MetricException
	MetricSuccess
	MetricRT
	MetricOccupiedPass
	metricEventCount
)

// Bucket is a single time-aligned counter cell. WindowStart is read
// atomically and rewritten only under the owning LeapArray's narrow reset
// lock; the counters themselves
// are independent atomics so concurrent writers never block each other.
type Bucket struct {
	windowStart atomic.Int64
	counters    [metricEventCount]atomic.Int64
}

func newBucket(windowStart int64) *Bucket {
	b := &Bucket{}
	b.windowStart.Store(windowStart)
	return b
}

// WindowStart returns the bucket's current window-start alignment, in ms.
func (b *Bucket) WindowStart() int64 {
	return b.windowStart.Load()
}

// Add accumulates count into the given counter. Count may be negative only
// in tests exercising reset behavior; production callers always add >= 0.
func (b *Bucket) Add(event MetricEvent, count int64) {
	b.counters[event].Add(count)
}

// Value returns the current accumulated value for the given counter.
func (b *Bucket) Value(event MetricEvent) int64 {
	return b.counters[event].Load()
}

// resetTo zeroes all counters and sets a new window start. Callers must hold
// the owning LeapArray's updateLock.
func (b *Bucket) resetTo(windowStart int64) {
	for i := range b.counters {
		b.counters[i].Store(0)
	}
	b.windowStart.Store(windowStart)
}
