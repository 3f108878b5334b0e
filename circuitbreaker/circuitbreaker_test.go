package circuitbreaker

import (
	"testing"

	"github.com/Resinat/warden/base"
)

type fakeNode struct {
	avgRT        float64
	exceptionQPS float64
	successQPS   float64
	totalQPS     float64
	totalExcept  int64
}

func (n *fakeNode) PassQPS() float64         { return n.totalQPS }
func (n *fakeNode) BlockQPS() float64        { return 0 }
func (n *fakeNode) ExceptionQPS() float64    { return n.exceptionQPS }
func (n *fakeNode) CompleteQPS() float64     { return n.successQPS }
func (n *fakeNode) TotalQPS() float64        { return n.totalQPS }
func (n *fakeNode) OccupiedPassQPS() float64 { return 0 }
func (n *fakeNode) AvgRT() float64           { return n.avgRT }
func (n *fakeNode) CurThreadNum() uint32     { return 0 }
func (n *fakeNode) TotalException() int64    { return n.totalExcept }
func (n *fakeNode) TotalSuccess() int64      { return 0 }
func (n *fakeNode) AddPass(uint32)           {}
func (n *fakeNode) AddBlock(uint32)          {}
func (n *fakeNode) AddException(uint32)      {}
func (n *fakeNode) AddRTAndSuccess(uint64, uint32)                             {}
func (n *fakeNode) AddOccupiedPass(uint32)                                     {}
func (n *fakeNode) IncreaseThreadNum()                                         {}
func (n *fakeNode) DecreaseThreadNum()                                         {}
func (n *fakeNode) TryOccupyNext(nowMs int64, acquireCount uint32, threshold float64) int64 { return 0 }

var _ base.StatNode = (*fakeNode)(nil)

func TestRT_TripsAfterSlowRequestAmount(t *testing.T) {
	r := &Rule{Grade: RT, Count: 100, RTSlowRequestAmount: 3, TimeWindowSec: 5}
	node := &fakeNode{avgRT: 200}

	if !check(r, node, 0) {
		t.Fatalf("1st slow observation must not yet trip")
	}
	if !check(r, node, 0) {
		t.Fatalf("2nd slow observation must not yet trip")
	}
	if check(r, node, 0) {
		t.Fatalf("3rd slow observation must trip")
	}
	if !r.Tripped() {
		t.Fatalf("rule must report tripped")
	}
}

func TestExceptionRatio_PassThroughClauseWhenExceptionsDominate(t *testing.T) {
	r := &Rule{Grade: ExceptionRatio, Count: 0.5, MinRequestAmount: 5}
	node := &fakeNode{totalQPS: 20, successQPS: 2, exceptionQPS: 4}

	if !check(r, node, 0) {
		t.Fatalf("realSuccess<=0 && exception<minRequestAmount must pass through")
	}
}

func TestExceptionRatio_TripsAtRatio(t *testing.T) {
	r := &Rule{Grade: ExceptionRatio, Count: 0.5, MinRequestAmount: 5}
	node := &fakeNode{totalQPS: 20, successQPS: 10, exceptionQPS: 6}

	if check(r, node, 1000) {
		t.Fatalf("exception/success=0.6 >= 0.5 must trip")
	}
	if !r.Tripped() {
		t.Fatalf("expected rule to be tripped")
	}
}

func TestExceptionCount_TripsAtMinuteTotal(t *testing.T) {
	r := &Rule{Grade: ExceptionCount, Count: 10}
	node := &fakeNode{totalExcept: 10}

	if check(r, node, 0) {
		t.Fatalf("10 total exceptions >= count=10 must trip")
	}
}

func TestRule_ResetAfterTimeWindow(t *testing.T) {
	r := &Rule{Grade: ExceptionCount, Count: 1, TimeWindowSec: 1}
	node := &fakeNode{totalExcept: 1}

	check(r, node, 0)
	if !r.Tripped() {
		t.Fatalf("expected trip")
	}
	r.maybeReset(500)
	if !r.Tripped() {
		t.Fatalf("must stay tripped before timeWindowSec elapses")
	}
	r.maybeReset(1000)
	if r.Tripped() {
		t.Fatalf("must reset once timeWindowSec has elapsed")
	}
}
