package node

import (
	"github.com/Resinat/warden/base"
	"github.com/puzpuzpuz/xsync/v4"
)

// EntranceNode is a pure read-only aggregate over the DefaultNodes entered
// under one Context name (design §3: "EntranceNode — aggregate of its
// children; read-only aggregations over childList"). It keeps no bucket
// array of its own: every derived statistic is computed on the fly from its
// children, weighting AvgRT by each child's completed-call count.
type EntranceNode struct {
	name     string
	children *xsync.Map[*DefaultNode, struct{}]
}

func newEntranceNode(name string) *EntranceNode {
	return &EntranceNode{name: name, children: xsync.NewMap[*DefaultNode, struct{}]()}
}

// Name returns the owning Context's name.
func (e *EntranceNode) Name() string { return e.name }

// AddChild registers a DefaultNode entered directly under this Context.
func (e *EntranceNode) AddChild(child *DefaultNode) {
	e.children.Store(child, struct{}{})
}

// Children returns the registered DefaultNodes.
func (e *EntranceNode) Children() []*DefaultNode {
	out := make([]*DefaultNode, 0, e.children.Size())
	e.children.Range(func(c *DefaultNode, _ struct{}) bool {
		out = append(out, c)
		return true
	})
	return out
}

func (e *EntranceNode) sumFloat(f func(*DefaultNode) float64) float64 {
	var total float64
	e.children.Range(func(c *DefaultNode, _ struct{}) bool {
		total += f(c)
		return true
	})
	return total
}

func (e *EntranceNode) sumInt(f func(*DefaultNode) int64) int64 {
	var total int64
	e.children.Range(func(c *DefaultNode, _ struct{}) bool {
		total += f(c)
		return true
	})
	return total
}

func (e *EntranceNode) PassQPS() float64      { return e.sumFloat((*DefaultNode).PassQPS) }
func (e *EntranceNode) BlockQPS() float64     { return e.sumFloat((*DefaultNode).BlockQPS) }
func (e *EntranceNode) ExceptionQPS() float64 { return e.sumFloat((*DefaultNode).ExceptionQPS) }
func (e *EntranceNode) CompleteQPS() float64  { return e.sumFloat((*DefaultNode).CompleteQPS) }
func (e *EntranceNode) TotalQPS() float64     { return e.sumFloat((*DefaultNode).TotalQPS) }
func (e *EntranceNode) OccupiedPassQPS() float64 {
	return e.sumFloat((*DefaultNode).OccupiedPassQPS)
}

// AvgRT is the completed-call-count-weighted average across children, zero
// when no child has completed a call yet.
func (e *EntranceNode) AvgRT() float64 {
	var rtTotal, successTotal float64
	e.children.Range(func(c *DefaultNode, _ struct{}) bool {
		successes := float64(c.TotalSuccess())
		rtTotal += c.AvgRT() * successes
		successTotal += successes
		return true
	})
	if successTotal == 0 {
		return 0
	}
	return rtTotal / successTotal
}

func (e *EntranceNode) CurThreadNum() uint32 {
	var total int64
	e.children.Range(func(c *DefaultNode, _ struct{}) bool {
		total += int64(c.CurThreadNum())
		return true
	})
	return uint32(total)
}

func (e *EntranceNode) TotalException() int64 { return e.sumInt((*DefaultNode).TotalException) }
func (e *EntranceNode) TotalSuccess() int64   { return e.sumInt((*DefaultNode).TotalSuccess) }

// AddPass, and the rest of the write side of base.StatNode, are no-ops: an
// EntranceNode is never itself the target of a write, only the aggregate
// view over its children (design §3).
func (e *EntranceNode) AddPass(uint32)             {}
func (e *EntranceNode) AddBlock(uint32)            {}
func (e *EntranceNode) AddException(uint32)        {}
func (e *EntranceNode) AddRTAndSuccess(uint64, uint32) {}
func (e *EntranceNode) AddOccupiedPass(uint32)     {}
func (e *EntranceNode) IncreaseThreadNum()         {}
func (e *EntranceNode) DecreaseThreadNum()         {}

// TryOccupyNext is meaningless for a read-only aggregate; it always reports
// "cannot occupy" rather than silently picking one child's answer.
func (e *EntranceNode) TryOccupyNext(nowMs int64, acquireCount uint32, threshold float64) int64 {
	return int64(secondWindowIntervalMs) + 1
}

var _ base.StatNode = (*EntranceNode)(nil)
