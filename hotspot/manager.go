package hotspot

import (
	"fmt"
	"strings"
	"sync/atomic"
)

type boundRule struct {
	rule   *Rule
	metric *ParameterMetric
}

// RuleManager stores the current hot-parameter rules per resource name,
// published atomically (same snapshot-swap shape as the other rule
// packages). Each rule gets its own ParameterMetric, discarded and rebuilt
// on every publish along with the rule itself.
type RuleManager struct {
	ptr      atomic.Pointer[map[string][]*boundRule]
	capacity int
}

// NewRuleManager returns an empty RuleManager whose per-rule parameter
// caches use the package default capacity. Use NewRuleManagerWithCapacity
// to override it (e.g. from govconfig.Config.ParamCacheCapacity).
func NewRuleManager() *RuleManager {
	return NewRuleManagerWithCapacity(defaultParamCacheCapacity)
}

// NewRuleManagerWithCapacity returns an empty RuleManager whose per-rule
// parameter caches are bounded to capacity entries.
func NewRuleManagerWithCapacity(capacity int) *RuleManager {
	m := &RuleManager{capacity: capacity}
	empty := map[string][]*boundRule{}
	m.ptr.Store(&empty)
	return m
}

// LoadRules replaces the entire rule set. Structurally invalid rules
// (empty resource name, non-positive Count, unknown enum value) are
// rejected and excluded from the published set; LoadRules still publishes
// every valid rule and returns every rejection joined into one error,
// mirroring govconfig.LoadConfig's accumulate-then-report style.
func (m *RuleManager) LoadRules(rules []Rule) error {
	built := make(map[string][]*boundRule, len(rules))
	var errs []string
	for i := range rules {
		r := &rules[i]
		if err := validateRule(r); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		built[r.Resource.Name] = append(built[r.Resource.Name], &boundRule{rule: r, metric: newParameterMetric(m.capacity)})
	}
	m.ptr.Store(&built)
	if len(errs) > 0 {
		return fmt.Errorf("hotspot: rejected %d rule(s): %s", len(errs), strings.Join(errs, "; "))
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
	if r.ControlBehavior != Default && r.ControlBehavior != RateLimiter {
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
