package authority

import "github.com/Resinat/warden/base"

// Slot rejects calls whose origin fails the resource's authority rule
// (design §4.1 item 4 / §4.6).
type Slot struct {
	manager *RuleManager
}

// NewSlot builds an authority Slot reading rules from manager.
func NewSlot(manager *RuleManager) *Slot {
	return &Slot{manager: manager}
}

func (s *Slot) Name() string { return "AuthoritySlot" }

func (s *Slot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	rule := s.manager.RuleFor(sc.Resource.Name)
	if rule == nil {
		return nil
	}
	if rule.allow(sc.Origin) {
		return nil
	}
	return base.Blocked(base.NewBlockError(base.BlockTypeAuthority, rule).WithTriggeredValue(sc.Origin))
}

func (s *Slot) OnExit(sc *base.SlotContext) {}

var _ base.Slot = (*Slot)(nil)
