package cluster

import (
	"testing"

	"github.com/Resinat/warden/base"
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) CurrentTimeMillis() int64 { return c.ms }

func TestRequestToken_GlobalThreshold_AdmitsUpToCount(t *testing.T) {
	clock := &fakeClock{}
	server := NewDefaultTokenServer(ServerConfig{}, clock)
	server.LoadRules([]ServerRule{{FlowID: 1, Count: 2, ThresholdType: Global}})

	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != OK {
		t.Fatalf("1st call: want OK, got %v", resp.Status)
	}
	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != OK {
		t.Fatalf("2nd call: want OK, got %v", resp.Status)
	}
	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != Blocked {
		t.Fatalf("3rd call: want Blocked, got %v", resp.Status)
	}
}

func TestRequestToken_AvgLocalThreshold_ScalesByConnectedClients(t *testing.T) {
	clock := &fakeClock{}
	server := NewDefaultTokenServer(ServerConfig{}, clock)
	server.LoadRules([]ServerRule{{FlowID: 1, Count: 10, ThresholdType: AvgLocal}})

	server.Heartbeat("a")
	server.Heartbeat("b")
	server.Heartbeat("c")

	// effective threshold = 10 * 3 clients * ExceedCount(1) = 30.
	for i := 0; i < 30; i++ {
		if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != OK {
			t.Fatalf("call %d: want OK under the scaled 30 QPS threshold, got %v", i, resp.Status)
		}
	}
	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != Blocked {
		t.Fatalf("31st call: want Blocked once the scaled threshold is exceeded, got %v", resp.Status)
	}
}

func TestRequestToken_UnknownFlowIDReturnsNoRuleExists(t *testing.T) {
	server := NewDefaultTokenServer(ServerConfig{}, &fakeClock{})
	if resp := server.RequestToken(Request{FlowID: 999, AcquireCount: 1}); resp.Status != NoRuleExists {
		t.Fatalf("want NoRuleExists, got %v", resp.Status)
	}
}

func TestRequestToken_NonPositiveAcquireCountIsBadRequest(t *testing.T) {
	server := NewDefaultTokenServer(ServerConfig{}, &fakeClock{})
	server.LoadRules([]ServerRule{{FlowID: 1, Count: 10}})
	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 0}); resp.Status != BadRequest {
		t.Fatalf("want BadRequest, got %v", resp.Status)
	}
}

func TestRequestToken_GlobalQPSCapsAcrossAllRules(t *testing.T) {
	clock := &fakeClock{}
	server := NewDefaultTokenServer(ServerConfig{GlobalQPS: 1}, clock)
	server.LoadRules([]ServerRule{{FlowID: 1, Count: 100}})

	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != OK {
		t.Fatalf("1st call under the namespace-wide ceiling: want OK, got %v", resp.Status)
	}
	if resp := server.RequestToken(Request{FlowID: 1, AcquireCount: 1}); resp.Status != TooManyRequest {
		t.Fatalf("2nd call over the namespace-wide ceiling: want TooManyRequest, got %v", resp.Status)
	}
}

// stubService lets TokenClient tests control the server's answer directly.
type stubService struct {
	resp Response
}

func (s *stubService) RequestToken(req Request) Response      { return s.resp }
func (s *stubService) RequestParamToken(req Request) Response { return s.resp }

func TestTokenClient_OKPasses(t *testing.T) {
	client := NewTokenClient(&stubService{resp: Response{Status: OK}}, 1, false, nil)
	result := client.RequestToken(1, false)
	if !result.IsPass() {
		t.Fatalf("want pass on OK")
	}
}

func TestTokenClient_BlockedRejectsWithoutFallback(t *testing.T) {
	fallbackCalled := false
	fallback := func(acquireCount uint32, prioritized bool) *base.TokenResult {
		fallbackCalled = true
		return base.Pass()
	}
	client := NewTokenClient(&stubService{resp: Response{Status: Blocked}}, 1, true, fallback)
	result := client.RequestToken(1, false)
	if result.IsPass() {
		t.Fatalf("BLOCKED must reject regardless of fallbackToLocalWhenFail")
	}
	if fallbackCalled {
		t.Fatalf("local fallback must not run on BLOCKED")
	}
}

func TestTokenClient_FailFallsBackToLocalWhenConfigured(t *testing.T) {
	fallbackCalled := false
	fallback := func(acquireCount uint32, prioritized bool) *base.TokenResult {
		fallbackCalled = true
		return base.Blocked(base.NewBlockError(base.BlockTypeFlow, nil))
	}
	client := NewTokenClient(&stubService{resp: Response{Status: Fail}}, 1, true, fallback)
	result := client.RequestToken(1, false)
	if !fallbackCalled {
		t.Fatalf("want local fallback invoked on FAIL with fallbackToLocalWhenFail=true")
	}
	if result.IsPass() {
		t.Fatalf("want the fallback's own verdict (blocked) surfaced")
	}
}

func TestTokenClient_FailPassesWithoutFallbackConfigured(t *testing.T) {
	client := NewTokenClient(&stubService{resp: Response{Status: NoRuleExists}}, 1, false, nil)
	result := client.RequestToken(1, false)
	if !result.IsPass() {
		t.Fatalf("without fallbackToLocalWhenFail, a non-OK/non-BLOCKED status must pass")
	}
}

func TestTokenClient_ShouldWaitPassesAfterOccupy(t *testing.T) {
	client := NewTokenClient(&stubService{resp: Response{Status: ShouldWait, WaitInMs: 0}}, 1, false, nil)
	result := client.RequestToken(1, true)
	if !result.IsPass() || !result.PreOccupied {
		t.Fatalf("SHOULD_WAIT must resolve to a pre-occupied pass")
	}
}

func TestClientRegistry_SweepDropsStaleClients(t *testing.T) {
	clock := &fakeClock{ms: 0}
	reg := newClientRegistry(1000, clock)
	reg.touch("a")
	clock.ms = 2000
	reg.touch("b")
	reg.sweep()
	if got := reg.count(); got != 1 {
		t.Fatalf("want 1 live client after sweep, got %d", got)
	}
}
