package hotspot

import (
	"reflect"
	"sync/atomic"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/cluster"
	"github.com/Resinat/warden/internal/timesource"
	"github.com/zeebo/xxh3"
)

// ParamClusterClient is satisfied by *cluster.TokenClient for resources
// using cluster-mode hot-parameter flow control (design §4.7 "Cluster
// parameter check").
type ParamClusterClient interface {
	RequestParamToken(req cluster.Request) cluster.Response
}

// Slot implements ParamFlowSlot (design §4.1 item 8 / §4.7).
type Slot struct {
	manager *RuleManager
	cluster ParamClusterClient
	clock   timesource.Source
}

// NewSlot builds a hotspot Slot. cluster may be nil when no resource uses
// ClusterMode.
func NewSlot(manager *RuleManager, cluster ParamClusterClient, clock timesource.Source) *Slot {
	if clock == nil {
		clock = timesource.Default
	}
	return &Slot{manager: manager, cluster: cluster, clock: clock}
}

func (s *Slot) Name() string { return "ParamFlowSlot" }

func (s *Slot) OnEntry(sc *base.SlotContext) *base.TokenResult {
	rules := s.manager.rulesFor(sc.Resource.Name)
	if len(rules) == 0 {
		return nil
	}
	now := s.clock.CurrentTimeMillis()
	var heldThreadCounters []threadHold

	for _, bound := range rules {
		rule := bound.rule
		idx, ok := rule.resolvedIndex(len(sc.Args))
		if !ok {
			continue
		}
		value := sc.Args[idx]

		if result := s.checkValue(rule, bound, value, now, sc.Count, &heldThreadCounters); result != nil {
			releaseThreadHolds(heldThreadCounters)
			return result
		}
	}
	if len(heldThreadCounters) > 0 {
		sc.Attach(threadHoldsKey, heldThreadCounters)
	}
	return nil
}

// checkValue dispatches a single rule against a single argument value,
// recursing element-by-element when value is a collection or array
// (design §4.7: "If the value is a collection or array, check each
// element independently with early-rejection").
func (s *Slot) checkValue(rule *Rule, bound *boundRule, value any, now int64, acquireCount uint32, holds *[]threadHold) *base.TokenResult {
	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		for i := 0; i < rv.Len(); i++ {
			if result := s.checkValue(rule, bound, rv.Index(i).Interface(), now, acquireCount, holds); result != nil {
				return result
			}
		}
		return nil
	}
	return s.checkSingleValue(rule, bound, value, now, acquireCount, holds)
}

func (s *Slot) checkSingleValue(rule *Rule, bound *boundRule, value any, now int64, acquireCount uint32, holds *[]threadHold) *base.TokenResult {
	key, canonical := hashValue(value)

	if rule.ClusterMode && rule.Grade == QPS && s.cluster != nil {
		req := cluster.Request{FlowID: ruleID(rule), AcquireCount: int32(acquireCount), Params: []any{value}}
		switch s.cluster.RequestParamToken(req).Status {
		case cluster.OK:
			return nil
		case cluster.Blocked:
			return base.Blocked(base.NewBlockError(base.BlockTypeParamFlow, rule).WithTriggeredValue(value))
		default:
			// NoRuleExists/BadRequest/Fail/TooManyRequest/ShouldWait: honor
			// the rule's own configured fallback (design §4.9's "fall back
			// to local if configured, else pass").
			if !rule.FallbackToLocalWhenFail {
				return nil
			}
		}
	}

	if rule.Grade == Thread {
		pass, counter := checkThread(rule, bound.metric, key, canonical)
		if !pass {
			return base.Blocked(base.NewBlockError(base.BlockTypeParamFlow, rule).WithTriggeredValue(value))
		}
		*holds = append(*holds, threadHold{counter: counter})
		return nil
	}

	var pass bool
	if rule.ControlBehavior == RateLimiter {
		pass = checkRateLimiter(rule, bound.metric, key, canonical, now, acquireCount)
	} else {
		pass = checkDefault(rule, bound.metric, key, canonical, now, acquireCount)
	}
	if !pass {
		return base.Blocked(base.NewBlockError(base.BlockTypeParamFlow, rule).WithTriggeredValue(value))
	}
	return nil
}

// ruleID gives the cluster-protocol FlowID for a rule. The cluster wire
// protocol keys rules by a uint64 FlowID, so the resource name is folded
// down via xxh3's 64-bit hash; every rule on the same resource therefore
// shares one FlowID.
func ruleID(r *Rule) uint64 {
	h := xxh3.HashString(r.Resource.Name)
	return h
}

const threadHoldsKey = "hotspot.threadHolds"

type threadHold struct {
	counter *atomic.Int64
}

func (s *Slot) OnExit(sc *base.SlotContext) {
	v, ok := sc.Attachment(threadHoldsKey)
	if !ok {
		return
	}
	holds, ok := v.([]threadHold)
	if !ok {
		return
	}
	releaseThreadHolds(holds)
}

func releaseThreadHolds(holds []threadHold) {
	for _, h := range holds {
		if h.counter != nil {
			h.counter.Add(-1)
		}
	}
}

var _ base.Slot = (*Slot)(nil)
