package flow

import "github.com/Resinat/warden/base"

// ClusterNodeProvider resolves a resource name's process-wide aggregate
// node, for the RELATE strategy (design §4.4). Satisfied by
// *node.Registry's ClusterStatNode method.
type ClusterNodeProvider interface {
	ClusterStatNode(resourceName string) base.StatNode
}

// selectNode implements the FlowSlot node-selection table from design
// §4.4. ok is false when the rule simply does not apply to this call (a
// DIRECT rule naming a specific origin other than sc.Origin, or a CHAIN
// rule whose RefResource doesn't match the owning Context), in which case
// the rule is skipped rather than evaluated.
func selectNode(rule *Rule, sc *base.SlotContext, siblings []*boundRule, provider ClusterNodeProvider) (node base.StatNode, ok bool) {
	switch rule.Strategy {
	case Relate:
		return provider.ClusterStatNode(rule.RefResource), true

	case Chain:
		if sc.Name != rule.RefResource {
			return nil, false
		}
		return sc.CurNode, true

	default: // Direct
		switch rule.LimitApp {
		case "", "default":
			return provider.ClusterStatNode(rule.Resource.Name), true
		case "other":
			if anySiblingMatchesOrigin(siblings, rule, sc.Origin) {
				return nil, false
			}
			return sc.OriginNode, sc.OriginNode != nil
		default:
			if rule.LimitApp != sc.Origin {
				return nil, false
			}
			return sc.OriginNode, sc.OriginNode != nil
		}
	}
}

func anySiblingMatchesOrigin(siblings []*boundRule, self *Rule, origin string) bool {
	for _, s := range siblings {
		if s.rule == self {
			continue
		}
		if s.rule.Strategy == Direct && s.rule.LimitApp == origin {
			return true
		}
	}
	return false
}
