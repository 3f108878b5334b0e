package slidingwindow

import (
	"sync"
	"sync/atomic"

	"github.com/Resinat/warden/internal/timesource"
)

// LeapArray is a fixed-size ring of time-aligned Buckets. It implements the
// BucketArray algorithm from the design: readers and writers never block on
// each other except during the short window in which a stale bucket is
// reset, which is guarded by a single narrow mutex per array.
type LeapArray struct {
	windowLengthMs int64
	sampleCount    int
	intervalMs     int64
	array          []atomic.Pointer[Bucket]
	updateLock     sync.Mutex
	clock          timesource.Source
}

// NewLeapArray builds a LeapArray of sampleCount buckets, each windowLengthMs
// wide, covering a trailing interval of sampleCount*windowLengthMs.
func NewLeapArray(sampleCount int, windowLengthMs int64, clock timesource.Source) *LeapArray {
	if clock == nil {
		clock = timesource.Default
	}
	return &LeapArray{
		windowLengthMs: windowLengthMs,
		sampleCount:    sampleCount,
		intervalMs:     windowLengthMs * int64(sampleCount),
		array:          make([]atomic.Pointer[Bucket], sampleCount),
		clock:          clock,
	}
}

// WindowLengthMs returns the width of a single bucket.
func (la *LeapArray) WindowLengthMs() int64 { return la.windowLengthMs }

// SampleCount returns the number of buckets in the array.
func (la *LeapArray) SampleCount() int { return la.sampleCount }

// IntervalMs returns the total trailing interval covered by the array.
func (la *LeapArray) IntervalMs() int64 { return la.intervalMs }

func alignedStart(nowMs, windowLengthMs int64) int64 {
	return nowMs - nowMs%windowLengthMs
}

func (la *LeapArray) index(nowMs int64) int {
	timeID := nowMs / la.windowLengthMs
	return int(timeID % int64(la.sampleCount))
}

// CurrentBucket returns the live bucket for nowMs, creating or resetting it
// as needed. Clock regressions return a detached zero bucket that is never
// installed in the array, so writes against it are silently discarded.
func (la *LeapArray) CurrentBucket(nowMs int64) *Bucket {
	idx := la.index(nowMs)
	start := alignedStart(nowMs, la.windowLengthMs)

	for {
		slot := &la.array[idx]
		cur := slot.Load()

		switch {
		case cur == nil:
			fresh := newBucket(start)
			if slot.CompareAndSwap(nil, fresh) {
				return fresh
			}
			// lost the race; reload and re-evaluate
			continue

		case cur.WindowStart() == start:
			return cur

		case cur.WindowStart() < start:
			la.updateLock.Lock()
			if cur.WindowStart() < start {
				cur.resetTo(start)
			}
			la.updateLock.Unlock()
			return cur

		default: // cur.WindowStart() > start: clock regression
			return newBucket(start)
		}
	}
}

// Now returns the array's clock in milliseconds.
func (la *LeapArray) Now() int64 { return la.clock.CurrentTimeMillis() }

// Buckets returns the live, non-nil buckets currently installed. Used by
// aggregation and by the occupation-wait estimator.
func (la *LeapArray) Buckets() []*Bucket {
	out := make([]*Bucket, 0, la.sampleCount)
	for i := range la.array {
		if b := la.array[i].Load(); b != nil {
			out = append(out, b)
		}
	}
	return out
}
