package flow

import (
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// Slot runs every flow rule registered for a resource, rejecting on the
// first rule whose controller blocks (design §4.1 item 6).
type Slot struct {
	manager  *RuleManager
	provider ClusterNodeProvider
	clock    timesource.Source
}

// NewSlot builds a flow Slot reading rules from manager and resolving
// RELATE-strategy nodes through provider.
func NewSlot(manager *RuleManager, provider ClusterNodeProvider, clock timesource.Source) *Slot {
	if clock == nil {
		clock = timesource.Default
	}
	return &Slot{manager: manager, provider: provider, clock: clock}
}

func (s *Slot) Name() string { return "FlowSlot" }

func (s *Slot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	rules := s.manager.rulesFor(sc.Resource.Name)
	var preOccupied *base.TokenResult
	for _, bound := range rules {
		node, ok := selectNode(bound.rule, sc, rules, s.provider)
		if !ok || node == nil {
			continue
		}
		result := bound.controller.CanPass(s.clock, node, sc.Count, sc.Prioritized)
		if !result.IsPass() {
			return result
		}
		if result.PreOccupied {
			preOccupied = result
		}
	}
	return preOccupied
}

func (s *Slot) OnExit(sc *base.SlotContext) {}

var _ base.Slot = (*Slot)(nil)
