package node

import (
	"github.com/Resinat/warden/base"
)

// NodeSelectorSlot resolves (and lazily creates) the DefaultNode for the
// current Context/resource pair and links it into the invocation tree
// under its parent Entry's node (design §4.1 item 1).
type NodeSelectorSlot struct {
	registry *Registry
}

// NewNodeSelectorSlot builds a NodeSelectorSlot backed by registry.
func NewNodeSelectorSlot(registry *Registry) *NodeSelectorSlot {
	return &NodeSelectorSlot{registry: registry}
}

func (s *NodeSelectorSlot) Name() string { return "NodeSelectorSlot" }

func (s *NodeSelectorSlot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	dn := s.registry.DefaultNode(sc.Name, sc.Resource)
	sc.CurNode = dn
	if sc.Parent != nil {
		if parentNode, ok := sc.Parent.CurNode.(*DefaultNode); ok {
			parentNode.AddChild(dn)
		}
	}
	return nil
}

func (s *NodeSelectorSlot) OnExit(sc *base.SlotContext) {}

// ClusterBuilderSlot resolves the per-origin StatisticNode under the
// resource's ClusterNode, when the Entry carries an origin tag
// (design §4.1 item 2).
type ClusterBuilderSlot struct {
	registry *Registry
}

// NewClusterBuilderSlot builds a ClusterBuilderSlot backed by registry.
func NewClusterBuilderSlot(registry *Registry) *ClusterBuilderSlot {
	return &ClusterBuilderSlot{registry: registry}
}

func (s *ClusterBuilderSlot) Name() string { return "ClusterBuilderSlot" }

func (s *ClusterBuilderSlot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	if sc.Origin == "" {
		return nil
	}
	cluster := s.registry.ClusterNode(sc.Resource.Name)
	sc.OriginNode = cluster.OriginNode(sc.Origin)
	return nil
}

func (s *ClusterBuilderSlot) OnExit(sc *base.SlotContext) {}

// StatisticSlot records pass/block/RT/exception statistics on the resolved
// nodes, mirrors inbound resources into the process-wide inbound aggregate,
// and bumps the concurrent-thread counters across Entry/Exit
// (design §4.2). It implements base.OutcomeRecorder to see the chain's
// final decision regardless of which downstream slot produced it.
type StatisticSlot struct {
	registry *Registry
}

// NewStatisticSlot builds a StatisticSlot backed by registry.
func NewStatisticSlot(registry *Registry) *StatisticSlot {
	return &StatisticSlot{registry: registry}
}

func (s *StatisticSlot) Name() string { return "StatisticSlot" }

func (s *StatisticSlot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	sc.CurNode.IncreaseThreadNum()
	if sc.OriginNode != nil {
		sc.OriginNode.IncreaseThreadNum()
	}
	if sc.Resource.EntryType == base.Inbound {
		s.registry.InboundNode().IncreaseThreadNum()
	}
	return nil
}

// RecordOutcome applies the chain's final admit decision: a straight PASS
// adds to the pass counters (unless it followed priority occupation, which
// was already counted as an occupied pass by the controller that granted
// it), while a block adds to the block counters and takes back OnEntry's
// thread-count increment, since a rejected call never reaches Exit.
func (s *StatisticSlot) RecordOutcome(sc *base.SlotContext, result *base.TokenResult) {
	switch result.Status {
	case base.ResultStatusBlocked:
		sc.CurNode.AddBlock(sc.Count)
		sc.CurNode.DecreaseThreadNum()
		if sc.OriginNode != nil {
			sc.OriginNode.AddBlock(sc.Count)
			sc.OriginNode.DecreaseThreadNum()
		}
		if sc.Resource.EntryType == base.Inbound {
			s.registry.InboundNode().AddBlock(sc.Count)
			s.registry.InboundNode().DecreaseThreadNum()
		}
	default:
		if result.PreOccupied {
			return
		}
		sc.CurNode.AddPass(sc.Count)
		if sc.OriginNode != nil {
			sc.OriginNode.AddPass(sc.Count)
		}
		if sc.Resource.EntryType == base.Inbound {
			s.registry.InboundNode().AddPass(sc.Count)
		}
	}
}

func (s *StatisticSlot) OnExit(sc *base.SlotContext) {
	sc.CurNode.DecreaseThreadNum()
	if sc.OriginNode != nil {
		sc.OriginNode.DecreaseThreadNum()
	}
	if sc.Resource.EntryType == base.Inbound {
		s.registry.InboundNode().DecreaseThreadNum()
	}

	if sc.BlockErr != nil {
		// A rejected call never reaches Exit's RT/success accounting: it
		// never ran.
		return
	}
	if sc.TraceErr != nil {
		// EXCEPTION was already counted when the error was traced; design
		// §4.2's "on exit, if no error was set" excludes RT/SUCCESS here.
		return
	}

	rt := uint64(s.registry.clock.CurrentTimeMillis() - sc.CreateTimeMs)
	sc.CurNode.AddRTAndSuccess(rt, sc.Count)
	if sc.OriginNode != nil {
		sc.OriginNode.AddRTAndSuccess(rt, sc.Count)
	}
	if sc.Resource.EntryType == base.Inbound {
		s.registry.InboundNode().AddRTAndSuccess(rt, sc.Count)
	}
}

// RecordException increments the EXCEPTION counters on every node touched
// by this Entry. Called by the root package's TraceEntry at the point a
// business error is traced (design §3's traceEntry, "records a business
// error count without rejecting") rather than deferred to Exit, since
// EXCEPTION must count even if exit's RT/SUCCESS accounting is skipped.
func RecordException(registry *Registry, sc *base.SlotContext) {
	if sc.CurNode != nil {
		sc.CurNode.AddException(sc.Count)
	}
	if sc.OriginNode != nil {
		sc.OriginNode.AddException(sc.Count)
	}
	if sc.Resource.EntryType == base.Inbound {
		registry.InboundNode().AddException(sc.Count)
	}
}

var (
	_ base.Slot            = (*NodeSelectorSlot)(nil)
	_ base.Slot            = (*ClusterBuilderSlot)(nil)
	_ base.Slot            = (*StatisticSlot)(nil)
	_ base.OutcomeRecorder = (*StatisticSlot)(nil)
)
