package warden

import (
	"errors"
	"testing"

	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/circuitbreaker"
	"github.com/Resinat/warden/flow"
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) CurrentTimeMillis() int64 { return c.ms }

func newTestRuntime(t *testing.T, clock *fakeClock) *Runtime {
	t.Helper()
	rt, err := NewRuntime(Config{Clock: clock})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	t.Cleanup(rt.Close)
	return rt
}

func TestEntry_PassesWithNoRules(t *testing.T) {
	rt := newTestRuntime(t, &fakeClock{})
	ctx, err := rt.EnterContext("test", "")
	if err != nil {
		t.Fatalf("EnterContext: %v", err)
	}
	entry, err := ctx.Entry(base.Resource{Name: "svc.Get"}, 1, false)
	if err != nil {
		t.Fatalf("Entry rejected with no rules loaded: %v", err)
	}
	if err := entry.Exit(); err != nil {
		t.Fatalf("Exit: %v", err)
	}
}

func TestEntry_FlowRuleBlocksOverThreshold(t *testing.T) {
	rt := newTestRuntime(t, &fakeClock{})
	resource := base.Resource{Name: "svc.Get"}
	rt.Flow.LoadRules([]flow.Rule{{Resource: resource, Grade: flow.QPS, Count: 1}})

	ctx, _ := rt.EnterContext("test", "")

	e1, err := ctx.Entry(resource, 1, false)
	if err != nil {
		t.Fatalf("1st call must pass: %v", err)
	}
	defer e1.Exit()

	_, err = ctx.Entry(resource, 1, false)
	var blockErr *base.BlockError
	if !errors.As(err, &blockErr) {
		t.Fatalf("2nd call over threshold must be blocked, got %v", err)
	}
	if blockErr.Type != base.BlockTypeFlow {
		t.Fatalf("want BlockTypeFlow, got %v", blockErr.Type)
	}
}

func TestEntry_NestedCallsBuildInvocationTree(t *testing.T) {
	rt := newTestRuntime(t, &fakeClock{})
	ctx, _ := rt.EnterContext("test", "")

	outer, err := ctx.Entry(base.Resource{Name: "svc.Outer"}, 1, false)
	if err != nil {
		t.Fatalf("outer entry: %v", err)
	}
	inner, err := ctx.Entry(base.Resource{Name: "svc.Inner"}, 1, false)
	if err != nil {
		t.Fatalf("inner entry: %v", err)
	}

	if err := outer.Exit(); err != ErrEntryPairMismatch {
		t.Fatalf("exiting the outer entry before its open child must mismatch, got %v", err)
	}

	if err := inner.Exit(); err != nil {
		t.Fatalf("inner exit: %v", err)
	}
	if err := outer.Exit(); err != nil {
		t.Fatalf("outer exit after inner closed: %v", err)
	}
	if err := outer.Exit(); err != ErrEntryPairMismatch {
		t.Fatalf("double exit must mismatch, got %v", err)
	}
}

func TestEntry_TraceEntryCountsExceptionAndTripsBreaker(t *testing.T) {
	clock := &fakeClock{}
	rt := newTestRuntime(t, clock)
	resource := base.Resource{Name: "svc.Flaky"}
	rt.CircuitBreaker.LoadRules([]circuitbreaker.Rule{{
		Resource: resource, Grade: circuitbreaker.ExceptionCount, Count: 2, TimeWindowSec: 10,
	}})

	ctx, _ := rt.EnterContext("test", "")
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		entry, err := ctx.Entry(resource, 1, false)
		if err != nil {
			t.Fatalf("call %d must pass before the breaker trips: %v", i, err)
		}
		entry.TraceEntry(boom)
		entry.Exit()
	}

	_, err := ctx.Entry(resource, 1, false)
	var blockErr *base.BlockError
	if !errors.As(err, &blockErr) || blockErr.Type != base.BlockTypeDegrade {
		t.Fatalf("want the circuit breaker tripped after 2 exceptions, got %v", err)
	}
}

func TestGuard_TracesReturnedErrorAndPropagatesResult(t *testing.T) {
	rt := newTestRuntime(t, &fakeClock{})
	resource := base.Resource{Name: "svc.Compute"}

	result, err := Guard(rt, GuardConfig{ContextName: "test", Resource: resource}, func() (int, error) {
		return 42, nil
	})
	if err != nil || result != 42 {
		t.Fatalf("want (42, nil), got (%d, %v)", result, err)
	}

	boom := errors.New("boom")
	_, err = Guard(rt, GuardConfig{ContextName: "test", Resource: resource}, func() (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want the callable's own error surfaced, got %v", err)
	}

	node := rt.Registry().DefaultNode("test", resource)
	if node.TotalException() != 1 {
		t.Fatalf("want 1 traced exception, got %d", node.TotalException())
	}
}

func TestGuard_ShouldTraceSuppressesIgnoredErrors(t *testing.T) {
	rt := newTestRuntime(t, &fakeClock{})
	resource := base.Resource{Name: "svc.Ignorable"}
	ignorable := errors.New("ignorable")

	_, err := Guard(rt, GuardConfig{
		ContextName: "test",
		Resource:    resource,
		ShouldTrace: func(err error) bool { return !errors.Is(err, ignorable) },
	}, func() (struct{}, error) {
		return struct{}{}, ignorable
	})
	if !errors.Is(err, ignorable) {
		t.Fatalf("want the callable's error still surfaced, got %v", err)
	}

	node := rt.Registry().DefaultNode("test", resource)
	if node.TotalException() != 0 {
		t.Fatalf("want the ignored error not traced, got %d exceptions", node.TotalException())
	}
}
