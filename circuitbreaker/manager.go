package circuitbreaker

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// RuleManager stores the current degrade rules per resource name,
// published atomically (same snapshot-swap shape as authority.RuleManager
// and flow.RuleManager).
type RuleManager struct {
	ptr atomic.Pointer[map[string][]*Rule]
}

// NewRuleManager returns an empty RuleManager.
func NewRuleManager() *RuleManager {
	m := &RuleManager{}
	empty := map[string][]*Rule{}
	m.ptr.Store(&empty)
	return m
}

// LoadRules replaces the entire rule set. Publishing resets every rule's
// tripped/slowCount state, since a re-published rule is a fresh policy.
// Structurally invalid rules (empty resource name, non-positive Count,
// unknown enum value) are rejected and excluded from the published set;
// LoadRules still publishes every valid rule and returns every rejection
// joined into one error, mirroring govconfig.LoadConfig's
// accumulate-then-report style.
func (m *RuleManager) LoadRules(rules []Rule) error {
	built := make(map[string][]*Rule, len(rules))
	var errs []string
	for i := range rules {
		r := &rules[i]
		if err := validateRule(r); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		built[r.Resource.Name] = append(built[r.Resource.Name], r)
	}
	m.ptr.Store(&built)
	if len(errs) > 0 {
		return fmt.Errorf("circuitbreaker: rejected %d rule(s): %s", len(errs), strings.Join(errs, "; "))
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
	if r.Grade != RT && r.Grade != ExceptionRatio && r.Grade != ExceptionCount {
		return fmt.Errorf("%s: unknown grade %d", r.Resource.Name, r.Grade)
	}
	return nil
}

func (m *RuleManager) rulesFor(resourceName string) []*Rule {
	snapshot := *m.ptr.Load()
	return snapshot[resourceName]
}

// allRules returns every rule currently published, across all resources —
// used by the reset sweeper.
func (m *RuleManager) allRules() []*Rule {
	snapshot := *m.ptr.Load()
	var out []*Rule
	for _, rules := range snapshot {
		out = append(out, rules...)
	}
	return out
}

// CurrentRules returns a copy of the resource->rules mapping currently in
// effect, for introspection.
func (m *RuleManager) CurrentRules() map[string][]Rule {
	snapshot := *m.ptr.Load()
	out := make(map[string][]Rule, len(snapshot))
	for name, rules := range snapshot {
		copied := make([]Rule, len(rules))
		for i, r := range rules {
			// Field-by-field, not a struct copy: Rule embeds atomic state
			// that must never be copied by value.
			copied[i] = Rule{
				Resource:            r.Resource,
				Grade:               r.Grade,
				Count:               r.Count,
				TimeWindowSec:       r.TimeWindowSec,
				RTSlowRequestAmount: r.RTSlowRequestAmount,
				MinRequestAmount:    r.MinRequestAmount,
			}
		}
		out[name] = copied
	}
	return out
}
