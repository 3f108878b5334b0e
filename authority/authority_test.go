package authority

import (
	"testing"

	"github.com/Resinat/warden/base"
)

func TestRule_WhiteList(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{Resource: resource, Strategy: White, LimitApp: "app1,app2"}})
	slot := NewSlot(mgr)

	cases := []struct {
		origin string
		pass   bool
	}{
		{"app1", true},
		{"app2", true},
		{"app3", false},
		{"", true}, // empty origin always passes
		{"app", false},
	}
	for _, c := range cases {
		sc := &base.SlotContext{Resource: resource, Origin: c.origin}
		result := slot.OnEntry(sc)
		pass := result == nil || result.IsPass()
		if pass != c.pass {
			t.Errorf("origin %q: expected pass=%v, got %v", c.origin, c.pass, pass)
		}
	}
}

func TestRule_BlackList(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{Resource: resource, Strategy: Black, LimitApp: "bad1,bad2"}})
	slot := NewSlot(mgr)

	sc := &base.SlotContext{Resource: resource, Origin: "bad1"}
	if r := slot.OnEntry(sc); r == nil || r.IsPass() {
		t.Fatalf("blacklisted origin must be blocked")
	}
	sc = &base.SlotContext{Resource: resource, Origin: "good"}
	if r := slot.OnEntry(sc); r != nil && !r.IsPass() {
		t.Fatalf("non-blacklisted origin must pass")
	}
}

func TestRule_NoRuleForResourceAlwaysPasses(t *testing.T) {
	mgr := NewRuleManager()
	slot := NewSlot(mgr)
	sc := &base.SlotContext{Resource: base.Resource{Name: "unruled"}, Origin: "anything"}
	if r := slot.OnEntry(sc); r != nil && !r.IsPass() {
		t.Fatalf("resource with no rule must always pass")
	}
}
