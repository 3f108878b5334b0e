package authority

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// RuleManager stores the current authority rules per resource name, published
// atomically so readers on the hot path never block a publisher (grounded on
// the teacher's account-matcher runtime: an immutable snapshot swapped in
// wholesale via atomic.Pointer rather than guarded by a mutex).
type RuleManager struct {
	ptr atomic.Pointer[map[string]*Rule]
}

// NewRuleManager returns an empty RuleManager.
func NewRuleManager() *RuleManager {
	m := &RuleManager{}
	empty := map[string]*Rule{}
	m.ptr.Store(&empty)
	return m
}

// LoadRules replaces the entire rule set with rules, keyed by resource name.
// A resource absent from rules has no authority check (always passes).
// Structurally invalid rules (empty resource name, unknown enum value) are
// rejected and excluded from the published set; LoadRules still publishes
// every valid rule and returns every rejection joined into one error,
// mirroring govconfig.LoadConfig's accumulate-then-report style.
func (m *RuleManager) LoadRules(rules []Rule) error {
	built := make(map[string]*Rule, len(rules))
	var errs []string
	for _, r := range rules {
		if err := validateRule(&r); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		built[r.Resource.Name] = newRule(r)
	}
	m.ptr.Store(&built)
	if len(errs) > 0 {
		return fmt.Errorf("authority: rejected %d rule(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func validateRule(r *Rule) error {
	if r.Resource.Name == "" {
		return fmt.Errorf("rule with empty resource name")
	}
	if r.Strategy != White && r.Strategy != Black {
		return fmt.Errorf("%s: unknown strategy %d", r.Resource.Name, r.Strategy)
	}
	return nil
}

// RuleFor returns the current rule for a resource, or nil if none is set.
func (m *RuleManager) RuleFor(resourceName string) *Rule {
	snapshot := *m.ptr.Load()
	return snapshot[resourceName]
}

// CurrentRules returns a copy of the resource->rule mapping currently in
// effect, for introspection.
func (m *RuleManager) CurrentRules() map[string]Rule {
	snapshot := *m.ptr.Load()
	out := make(map[string]Rule, len(snapshot))
	for name, r := range snapshot {
		out[name] = *r
	}
	return out
}
