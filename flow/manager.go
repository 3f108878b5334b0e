package flow

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// controllerFor builds the shaping controller matching a rule's
// ControlBehavior.
func controllerFor(rule *Rule) Controller {
	switch rule.ControlBehavior {
	case WarmUp:
		return NewWarmUpController(rule)
	case RateLimiter:
		return NewRateLimiterController(rule)
	case WarmUpRateLimiter:
		return NewWarmUpRateLimiterController(rule)
	default:
		return NewDefaultController(rule)
	}
}

type boundRule struct {
	rule       *Rule
	controller Controller
}

// RuleManager stores the current flow rules per resource name, published
// atomically (same immutable-snapshot-swap shape as authority.RuleManager).
// A resource may carry more than one rule; every rule for a resource must
// admit the call (design §4.1: FlowSlot runs "per-rule flow control").
type RuleManager struct {
	ptr atomic.Pointer[map[string][]*boundRule]
}

// NewRuleManager returns an empty RuleManager.
func NewRuleManager() *RuleManager {
	m := &RuleManager{}
	empty := map[string][]*boundRule{}
	m.ptr.Store(&empty)
	return m
}

// LoadRules replaces the entire rule set. Each rule gets a freshly built
// controller, so in-flight shaping state (token buckets, queue timestamps)
// from the prior rule set is discarded on every publish. Structurally
// invalid rules (empty resource name, non-positive Count, unknown enum
// value) are rejected and excluded from the published set; LoadRules still
// publishes every valid rule and returns every rejection joined into one
// error, mirroring govconfig.LoadConfig's accumulate-then-report style.
func (m *RuleManager) LoadRules(rules []Rule) error {
	built := make(map[string][]*boundRule, len(rules))
	var errs []string
	for i := range rules {
		r := &rules[i]
		if err := validateRule(r); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		built[r.Resource.Name] = append(built[r.Resource.Name], &boundRule{rule: r, controller: controllerFor(r)})
	}
	m.ptr.Store(&built)
	if len(errs) > 0 {
		return fmt.Errorf("flow: rejected %d rule(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func validateRule(r *Rule) error {
	if r.Resource.Name == "" {
		return fmt.Errorf("rule with empty resource name")
	}
	if r.Count <= 0 {
		return fmt.Errorf("%s: count must be positive, got %v", r.Resource.Name, r.Count)
	}
	if r.Grade != QPS && r.Grade != Thread {
		return fmt.Errorf("%s: unknown grade %d", r.Resource.Name, r.Grade)
	}
	if r.Strategy != Direct && r.Strategy != Relate && r.Strategy != Chain {
		return fmt.Errorf("%s: unknown strategy %d", r.Resource.Name, r.Strategy)
	}
	if r.ControlBehavior != Default && r.ControlBehavior != WarmUp && r.ControlBehavior != RateLimiter && r.ControlBehavior != WarmUpRateLimiter {
		return fmt.Errorf("%s: unknown controlBehavior %d", r.Resource.Name, r.ControlBehavior)
	}
	return nil
}

func (m *RuleManager) rulesFor(resourceName string) []*boundRule {
	snapshot := *m.ptr.Load()
	return snapshot[resourceName]
}

// CurrentRules returns a copy of the resource->rules mapping currently in
// effect, for introspection.
func (m *RuleManager) CurrentRules() map[string][]Rule {
	snapshot := *m.ptr.Load()
	out := make(map[string][]Rule, len(snapshot))
	for name, bound := range snapshot {
		rules := make([]Rule, len(bound))
		for i, b := range bound {
			rules[i] = *b.rule
		}
		out[name] = rules
	}
	return out
}
