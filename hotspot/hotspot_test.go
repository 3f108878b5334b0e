package hotspot

import (
	"testing"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/cluster"
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) CurrentTimeMillis() int64 { return c.ms }

type stubParamClusterClient struct{ resp cluster.Response }

func (s stubParamClusterClient) RequestParamToken(cluster.Request) cluster.Response { return s.resp }

func TestDefault_AdmitsUpToCountThenRejects(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{
		Resource:      resource,
		ParamIdx:      0,
		Grade:         QPS,
		Count:         2,
		DurationInSec: 1,
	}})
	slot := NewSlot(mgr, nil, &fakeClock{ms: 0})

	sc := func(arg string) *base.SlotContext {
		return &base.SlotContext{Resource: resource, Count: 1, Args: []any{arg}}
	}

	if r := slot.OnEntry(sc("k")); r != nil && !r.IsPass() {
		t.Fatalf("1st call for k must pass")
	}
	if r := slot.OnEntry(sc("k")); r != nil && !r.IsPass() {
		t.Fatalf("2nd call for k must pass")
	}
	if r := slot.OnEntry(sc("k")); r == nil || r.IsPass() {
		t.Fatalf("3rd call for k must reject, per scenario 5")
	}
	if r := slot.OnEntry(sc("k2")); r != nil && !r.IsPass() {
		t.Fatalf("a different value's independent bucket must pass")
	}
}

func TestThreadGrade_TracksConcurrentHolders(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{Resource: resource, ParamIdx: 0, Grade: Thread, Count: 1}})
	slot := NewSlot(mgr, nil, &fakeClock{ms: 0})

	sc1 := &base.SlotContext{Resource: resource, Count: 1, Args: []any{"k"}}
	if r := slot.OnEntry(sc1); r != nil && !r.IsPass() {
		t.Fatalf("first concurrent call for k must pass")
	}

	sc2 := &base.SlotContext{Resource: resource, Count: 1, Args: []any{"k"}}
	if r := slot.OnEntry(sc2); r == nil || r.IsPass() {
		t.Fatalf("second concurrent call for k must reject while the first is still held")
	}

	slot.OnExit(sc1)

	sc3 := &base.SlotContext{Resource: resource, Count: 1, Args: []any{"k"}}
	if r := slot.OnEntry(sc3); r != nil && !r.IsPass() {
		t.Fatalf("after releasing the first holder, a new call for k must pass")
	}
}

func TestNegativeParamIdx_TranslatesFromEnd(t *testing.T) {
	rule := &Rule{ParamIdx: -1}
	idx, ok := rule.resolvedIndex(3)
	if !ok || idx != 2 {
		t.Fatalf("expected index 2, got %d (ok=%v)", idx, ok)
	}
	_, ok = (&Rule{ParamIdx: -10}).resolvedIndex(3)
	if ok {
		t.Fatalf("out-of-range negative index must resolve to not-ok (inert rule)")
	}
}

func TestCollectionArgument_EarlyRejectsOnFirstOffendingElement(t *testing.T) {
	resource := base.Resource{Name: "svc.Batch"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{Resource: resource, ParamIdx: 0, Grade: QPS, Count: 1, DurationInSec: 1}})
	slot := NewSlot(mgr, nil, &fakeClock{ms: 0})

	sc := &base.SlotContext{Resource: resource, Count: 1, Args: []any{[]string{"k", "k"}}}
	if r := slot.OnEntry(sc); r == nil || r.IsPass() {
		t.Fatalf("second occurrence of the same value within one collection call must reject")
	}
}

func TestClusterMode_NonAuthoritativeResponse_PassesWithoutLocalCheckWhenFallbackDisabled(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{
		Resource:                resource,
		ParamIdx:                0,
		Grade:                   QPS,
		Count:                   1,
		DurationInSec:           1,
		ClusterMode:             true,
		FallbackToLocalWhenFail: false,
	}})
	client := stubParamClusterClient{resp: cluster.Response{Status: cluster.Fail}}
	slot := NewSlot(mgr, client, &fakeClock{ms: 0})

	sc := func() *base.SlotContext { return &base.SlotContext{Resource: resource, Count: 1, Args: []any{"k"}} }

	for i := 0; i < 5; i++ {
		if r := slot.OnEntry(sc()); r != nil && !r.IsPass() {
			t.Fatalf("call %d must pass: a non-authoritative cluster response with fallback disabled should never consult the local bucket", i)
		}
	}
}

func TestClusterMode_NonAuthoritativeResponse_FallsBackToLocalCheckWhenConfigured(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{
		Resource:                resource,
		ParamIdx:                0,
		Grade:                   QPS,
		Count:                   1,
		DurationInSec:           1,
		ClusterMode:             true,
		FallbackToLocalWhenFail: true,
	}})
	client := stubParamClusterClient{resp: cluster.Response{Status: cluster.NoRuleExists}}
	slot := NewSlot(mgr, client, &fakeClock{ms: 0})

	sc := func() *base.SlotContext { return &base.SlotContext{Resource: resource, Count: 1, Args: []any{"k"}} }

	if r := slot.OnEntry(sc()); r != nil && !r.IsPass() {
		t.Fatalf("1st call for k must pass")
	}
	if r := slot.OnEntry(sc()); r == nil || r.IsPass() {
		t.Fatalf("2nd call for k must reject once fallback reaches the local bucket's threshold")
	}
}

func TestCheckRateLimiter_SpacesSuccessiveCallsByCostTime(t *testing.T) {
	rule := &Rule{Count: 1000, DurationInSec: 1, MaxQueueingTimeMs: 10} // costTime = 1ms
	pm := newParameterMetric(0)
	key, canonical := hashValue("k")

	if !checkRateLimiter(rule, pm, key, canonical, 1, 1) {
		t.Fatalf("first call at t=1 (== costTime) must pass immediately")
	}
	qs := pm.getOrCreateQueueState(key)
	if got := qs.expectedPassMs.Load(); got != 1 {
		t.Fatalf("expectedPassMs after an immediate pass must equal nowMs (1), got %d", got)
	}

	if !checkRateLimiter(rule, pm, key, canonical, 1, 1) {
		t.Fatalf("second call queued within MaxQueueingTimeMs must still pass")
	}
	if got := qs.expectedPassMs.Load(); got != 2 {
		t.Fatalf("expectedPassMs must reserve the next costTime slot (2), got %d — a queued pass must commit the reserved slot, not nowMs, or callers stop being spaced apart", got)
	}
}

func TestCheckRateLimiter_RejectsWhenQueueExceedsMaxWait(t *testing.T) {
	rule := &Rule{Count: 1000, DurationInSec: 1, MaxQueueingTimeMs: 0} // costTime = 1ms, no queueing allowed
	pm := newParameterMetric(0)
	key, canonical := hashValue("k")

	if !checkRateLimiter(rule, pm, key, canonical, 0, 1) {
		t.Fatalf("first call at t=0 with an empty queue must pass immediately")
	}
	if checkRateLimiter(rule, pm, key, canonical, 0, 1) {
		t.Fatalf("second call at the same instant must reject: the 1ms wait exceeds MaxQueueingTimeMs=0")
	}
}

func TestClusterMode_BlockedResponse_RejectsRegardlessOfFallback(t *testing.T) {
	resource := base.Resource{Name: "svc.Get"}
	mgr := NewRuleManager()
	mgr.LoadRules([]Rule{{
		Resource:                resource,
		ParamIdx:                0,
		Grade:                   QPS,
		Count:                   100,
		DurationInSec:           1,
		ClusterMode:             true,
		FallbackToLocalWhenFail: false,
	}})
	client := stubParamClusterClient{resp: cluster.Response{Status: cluster.Blocked}}
	slot := NewSlot(mgr, client, &fakeClock{ms: 0})

	sc := &base.SlotContext{Resource: resource, Count: 1, Args: []any{"k"}}
	if r := slot.OnEntry(sc); r == nil || r.IsPass() {
		t.Fatalf("a Blocked cluster response must reject even though the local bucket has headroom")
	}
}
