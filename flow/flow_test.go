package flow

import (
	"testing"

	"github.com/Resinat/warden/base"
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) CurrentTimeMillis() int64 { return c.ms }

// fakeNode is a minimal base.StatNode stub that reports a fixed PassQPS and
// thread count, for exercising controllers without the real metrics engine.
type fakeNode struct {
	passQPS      float64
	curThreadNum uint32
	occupied     uint32
}

func (n *fakeNode) PassQPS() float64         { return n.passQPS }
func (n *fakeNode) BlockQPS() float64        { return 0 }
func (n *fakeNode) ExceptionQPS() float64    { return 0 }
func (n *fakeNode) CompleteQPS() float64     { return 0 }
func (n *fakeNode) TotalQPS() float64        { return n.passQPS }
func (n *fakeNode) OccupiedPassQPS() float64 { return 0 }
func (n *fakeNode) AvgRT() float64           { return 0 }
func (n *fakeNode) CurThreadNum() uint32     { return n.curThreadNum }
func (n *fakeNode) TotalException() int64    { return 0 }
func (n *fakeNode) TotalSuccess() int64      { return 0 }
func (n *fakeNode) AddPass(uint32)           {}
func (n *fakeNode) AddBlock(uint32)          {}
func (n *fakeNode) AddException(uint32)      {}
func (n *fakeNode) AddRTAndSuccess(uint64, uint32) {}
func (n *fakeNode) AddOccupiedPass(count uint32)   { n.occupied += count }
func (n *fakeNode) IncreaseThreadNum()             {}
func (n *fakeNode) DecreaseThreadNum()             {}
func (n *fakeNode) TryOccupyNext(nowMs int64, acquireCount uint32, threshold float64) int64 {
	return 10000 // never occupiable in these tests
}

var _ base.StatNode = (*fakeNode)(nil)

func TestDefaultController_RejectsOverThreshold(t *testing.T) {
	rule := &Rule{Grade: QPS, Count: 10}
	c := NewDefaultController(rule)
	clock := &fakeClock{ms: 1000}
	node := &fakeNode{passQPS: 9}

	if r := c.CanPass(clock, node, 1, false); !r.IsPass() {
		t.Fatalf("9+1<=10 must pass")
	}
	node.passQPS = 10
	if r := c.CanPass(clock, node, 1, false); r.IsPass() {
		t.Fatalf("10+1>10 must block")
	}
}

func TestDefaultController_ThreadGrade(t *testing.T) {
	rule := &Rule{Grade: Thread, Count: 5}
	c := NewDefaultController(rule)
	clock := &fakeClock{ms: 1000}
	node := &fakeNode{curThreadNum: 5}

	if r := c.CanPass(clock, node, 1, false); r.IsPass() {
		t.Fatalf("5 threads + 1 > 5 must block")
	}
}

func TestRateLimiterController_SpacesRequestsByCostTime(t *testing.T) {
	rule := &Rule{Count: 5, MaxQueueingTimeMs: 2000} // costTime = 200ms
	c := NewRateLimiterController(rule)
	clock := &fakeClock{ms: 0}
	node := &fakeNode{}

	r := c.CanPass(clock, node, 1, false)
	if !r.IsPass() {
		t.Fatalf("first call at t=0 must pass immediately")
	}
	if got := c.latestPassedTime.Load(); got != 0 {
		t.Fatalf("expected latestPassedTime=0 after first pass, got %d", got)
	}
}

func TestRateLimiterController_RejectsWhenQueueTooLong(t *testing.T) {
	rule := &Rule{Count: 5, MaxQueueingTimeMs: 100} // costTime = 200ms
	c := NewRateLimiterController(rule)
	clock := &fakeClock{ms: 0}
	node := &fakeNode{}

	c.latestPassedTime.Store(0)
	clock.ms = 50
	r := c.CanPass(clock, node, 1, false)
	if r.IsPass() {
		t.Fatalf("expected a 4th call at t=50 with maxQueue=100ms to reject, per scenario 2")
	}
}

func TestWarmUpController_AdmitsColdStartRatio(t *testing.T) {
	rule := &Rule{Count: 100, WarmUpSec: 10, ColdFactor: 3}
	c := NewWarmUpController(rule)
	clock := &fakeClock{ms: 0}
	node := &fakeNode{passQPS: 0}

	threshold := c.currentCount(clock, node)
	expectedColdQPS := rule.Count / float64(rule.ColdFactor)
	if threshold > expectedColdQPS*1.5 || threshold <= 0 {
		t.Fatalf("cold-start threshold should be roughly count/coldFactor=%v, got %v", expectedColdQPS, threshold)
	}
}
