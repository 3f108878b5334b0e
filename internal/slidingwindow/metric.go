// Package slidingwindow implements the lock-light, bucketed, time-windowed
// counters described by the design as the "sliding-window metrics engine":
// a fixed ring of time-aligned buckets (LeapArray) plus the aggregate views
// (Metric) that derive per-second and per-minute statistics from it.
package slidingwindow

import (
	"github.com/Resinat/warden/internal/timesource"
)

// Metric is a BucketArray plus the aggregate reads (sum/QPS/avg) a Node
// needs. One Metric backs the "second window" and a second one backs the
// "minute window" of every StatisticNode.
type Metric struct {
	array *LeapArray
}

// NewMetric builds a Metric with sampleCount buckets spanning intervalMs.
// intervalMs must be evenly divisible by sampleCount.
func NewMetric(sampleCount int, intervalMs int64, clock timesource.Source) *Metric {
	return &Metric{array: NewLeapArray(sampleCount, intervalMs/int64(sampleCount), clock)}
}

// Add accumulates count into the given event's bucket for "now".
func (m *Metric) Add(event MetricEvent, count int64) {
	m.AddAt(m.array.Now(), event, count)
}

// AddAt accumulates count at an explicit timestamp, for deterministic tests.
func (m *Metric) AddAt(nowMs int64, event MetricEvent, count int64) {
	m.array.CurrentBucket(nowMs).Add(event, count)
}

// Sum aggregates event over the array's trailing interval as of now.
func (m *Metric) Sum(event MetricEvent) int64 {
	return m.SumAt(m.array.Now(), event)
}

// SumAt aggregates event over the trailing interval as of an explicit
// timestamp, without creating or mutating any bucket. Buckets whose window
// has already passed out of the trailing interval are skipped.
func (m *Metric) SumAt(nowMs int64, event MetricEvent) int64 {
	threshold := nowMs - m.array.IntervalMs()
	var total int64
	for _, b := range m.array.Buckets() {
		if b.WindowStart() > threshold {
			total += b.Value(event)
		}
	}
	return total
}

// QPS returns event's per-second rate over the trailing interval.
func (m *Metric) QPS(event MetricEvent) float64 {
	return float64(m.Sum(event)) / (float64(m.array.IntervalMs()) / 1000.0)
}

// AvgRT returns the mean recorded response time, or 0 when no successes
// have been recorded (spec §4.3: "Average RT = sum(RT)/sum(SUCCESS), or 0
// when SUCCESS=0").
func (m *Metric) AvgRT() float64 {
	success := m.Sum(MetricSuccess)
	if success == 0 {
		return 0
	}
	return float64(m.Sum(MetricRT)) / float64(success)
}

// BucketLengthMs returns the width, in ms, of one bucket in this metric.
func (m *Metric) BucketLengthMs() int64 { return m.array.WindowLengthMs() }

// SampleCount returns the number of buckets in this metric.
func (m *Metric) SampleCount() int { return m.array.SampleCount() }

// IntervalMs returns the total trailing interval this metric covers.
func (m *Metric) IntervalMs() int64 { return m.array.IntervalMs() }

// Now returns the metric's clock reading, in ms.
func (m *Metric) Now() int64 { return m.array.Now() }
