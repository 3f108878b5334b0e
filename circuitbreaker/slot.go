package circuitbreaker

import (
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/internal/timesource"
)

// ClusterNodeProvider resolves a resource name's process-wide aggregate
// node. Satisfied by *node.Registry's ClusterStatNode method.
type ClusterNodeProvider interface {
	ClusterStatNode(resourceName string) base.StatNode
}

// Slot rejects calls to a resource whose circuit is open, and otherwise
// feeds every rule's check with the resource's ClusterNode observation
// (design §4.1 item 7 / §4.5).
type Slot struct {
	manager  *RuleManager
	provider ClusterNodeProvider
	clock    timesource.Source
}

// NewSlot builds a degrade Slot reading rules from manager.
func NewSlot(manager *RuleManager, provider ClusterNodeProvider, clock timesource.Source) *Slot {
	if clock == nil {
		clock = timesource.Default
	}
	return &Slot{manager: manager, provider: provider, clock: clock}
}

func (s *Slot) Name() string { return "DegradeSlot" }

func (s *Slot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	rules := s.manager.rulesFor(sc.Resource.Name)
	if len(rules) == 0 {
		return nil
	}
	node := s.provider.ClusterStatNode(sc.Resource.Name)
	now := s.clock.CurrentTimeMillis()

	for _, r := range rules {
		if r.Tripped() {
			return base.Blocked(base.NewBlockError(base.BlockTypeDegrade, r))
		}
		if !check(r, node, now) {
			return base.Blocked(base.NewBlockError(base.BlockTypeDegrade, r))
		}
	}
	return nil
}

func (s *Slot) OnExit(sc *base.SlotContext) {}

var _ base.Slot = (*Slot)(nil)
