// Package node implements the node family from design §2/§3
// (StatisticNode, DefaultNode, ClusterNode, EntranceNode) and the three
// slots that build and populate them (NodeSelectorSlot, ClusterBuilderSlot,
// StatisticSlot).
package node

import (
	"sync/atomic"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/slidingwindow"
	"github.com/Resinat/warden/internal/timesource"
)

const (
	secondWindowSampleCount = 2
	secondWindowIntervalMs  = 1000
	minuteWindowSampleCount = 60
	minuteWindowIntervalMs  = 60_000
)

// StatisticNode carries the two sliding windows and the concurrent-thread
// counter described in design §3. It is embedded by every other node
// variant and implements base.StatNode directly, so a bare StatisticNode
// can stand in for an origin's per-origin node or the process-wide inbound
// aggregate.
type StatisticNode struct {
	second *slidingwindow.Metric
	minute *slidingwindow.Metric

	curThreadNum atomic.Int32
}

var _ base.StatNode = (*StatisticNode)(nil)

// NewStatisticNode builds a StatisticNode against clock. Pass nil for clock
// to use the real wall clock.
func NewStatisticNode(clock timesource.Source) *StatisticNode {
	return &StatisticNode{
		second: slidingwindow.NewMetric(secondWindowSampleCount, secondWindowIntervalMs, clock),
		minute: slidingwindow.NewMetric(minuteWindowSampleCount, minuteWindowIntervalMs, clock),
	}
}

func (n *StatisticNode) PassQPS() float64       { return n.second.QPS(slidingwindow.MetricPass) }
func (n *StatisticNode) BlockQPS() float64      { return n.second.QPS(slidingwindow.MetricBlock) }
func (n *StatisticNode) ExceptionQPS() float64  { return n.second.QPS(slidingwindow.MetricException) }
func (n *StatisticNode) CompleteQPS() float64   { return n.second.QPS(slidingwindow.MetricSuccess) }
func (n *StatisticNode) TotalQPS() float64      { return n.PassQPS() + n.BlockQPS() }
func (n *StatisticNode) OccupiedPassQPS() float64 {
	return n.second.QPS(slidingwindow.MetricOccupiedPass)
}
func (n *StatisticNode) AvgRT() float64        { return n.second.AvgRT() }
func (n *StatisticNode) CurThreadNum() uint32  { return uint32(n.curThreadNum.Load()) }
func (n *StatisticNode) TotalException() int64 { return n.minute.Sum(slidingwindow.MetricException) }
func (n *StatisticNode) TotalSuccess() int64    { return n.minute.Sum(slidingwindow.MetricSuccess) }

func (n *StatisticNode) AddPass(count uint32) {
	n.second.Add(slidingwindow.MetricPass, int64(count))
	n.minute.Add(slidingwindow.MetricPass, int64(count))
}

func (n *StatisticNode) AddBlock(count uint32) {
	n.second.Add(slidingwindow.MetricBlock, int64(count))
	n.minute.Add(slidingwindow.MetricBlock, int64(count))
}

func (n *StatisticNode) AddException(count uint32) {
	n.second.Add(slidingwindow.MetricException, int64(count))
	n.minute.Add(slidingwindow.MetricException, int64(count))
}

func (n *StatisticNode) AddRTAndSuccess(rt uint64, count uint32) {
	n.second.Add(slidingwindow.MetricRT, int64(rt))
	n.second.Add(slidingwindow.MetricSuccess, int64(count))
	n.minute.Add(slidingwindow.MetricRT, int64(rt))
	n.minute.Add(slidingwindow.MetricSuccess, int64(count))
}

func (n *StatisticNode) AddOccupiedPass(count uint32) {
	n.second.Add(slidingwindow.MetricOccupiedPass, int64(count))
}

func (n *StatisticNode) IncreaseThreadNum() { n.curThreadNum.Add(1) }
func (n *StatisticNode) DecreaseThreadNum() {
	if n.curThreadNum.Add(-1) < 0 {
		// Defensive: an Exit without a matching Entry increment must never
		// leave the counter negative, which would corrupt THREAD-grade
		// flow control for every subsequent call on this node.
		n.curThreadNum.Store(0)
	}
}

// TryOccupyNext implements the occupation-wait estimate from design §4.8:
// walk forward bucket-by-bucket (within the second window's single
// interval) and return the first offset at which the pass count still
// counted in the trailing window, plus the already-reserved occupied-pass
// count and acquireCount, would not exceed threshold. Returns an offset
// strictly greater than the full interval width when no such offset exists
// within this window, signalling "cannot occupy" to the caller.
func (n *StatisticNode) TryOccupyNext(nowMs int64, acquireCount uint32, threshold float64) int64 {
	bucketLenMs := n.second.BucketLengthMs()
	maxWaitMs := n.second.IntervalMs()
	occupied := float64(n.second.Sum(slidingwindow.MetricOccupiedPass))

	for waitMs := bucketLenMs; waitMs <= maxWaitMs; waitMs += bucketLenMs {
		futureMs := nowMs + waitMs
		expected := float64(n.second.SumAt(futureMs, slidingwindow.MetricPass)) + occupied
		if expected+float64(acquireCount) <= threshold {
			return waitMs
		}
	}
	return maxWaitMs + 1
}

// Snapshot is a point-in-time read of every derived statistic, used by
// introspection and tests.
type Snapshot struct {
	PassQPS         float64
	BlockQPS        float64
	ExceptionQPS    float64
	CompleteQPS     float64
	TotalQPS        float64
	OccupiedPassQPS float64
	AvgRT           float64
	CurThreadNum    uint32
	TotalException  int64
	TotalSuccess    int64
}

// SnapshotOf reads every derived statistic off n at once.
func SnapshotOf(n base.StatNode) Snapshot {
	return Snapshot{
		PassQPS:         n.PassQPS(),
		BlockQPS:        n.BlockQPS(),
		ExceptionQPS:    n.ExceptionQPS(),
		CompleteQPS:     n.CompleteQPS(),
		TotalQPS:        n.TotalQPS(),
		OccupiedPassQPS: n.OccupiedPassQPS(),
		AvgRT:           n.AvgRT(),
		CurThreadNum:    n.CurThreadNum(),
		TotalException:  n.TotalException(),
		TotalSuccess:    n.TotalSuccess(),
	}
}
