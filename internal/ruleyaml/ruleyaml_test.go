package ruleyaml

import (
	"testing"

	"github.com/Resinat/warden/authority"
	"github.com/Resinat/warden/circuitbreaker"
	"github.com/Resinat/warden/flow"
	"github.com/Resinat/warden/hotspot"
)

const doc = `
flow:
  - resource: svc.Get
    grade: qps
    count: 10
    controlBehavior: warmUp
    warmUpSec: 5
    coldFactor: 3
circuitBreaker:
  - resource: svc.Get
    grade: exceptionCount
    count: 5
    timeWindowSec: 10
authority:
  - resource: svc.Get
    strategy: black
    limitApp: evil-app
hotspot:
  - resource: svc.Batch
    paramIdx: 0
    grade: qps
    count: 2
    durationInSec: 1
`

func TestLoadAndApply_PopulatesAllFourManagers(t *testing.T) {
	mgrs := Managers{
		Flow:           flow.NewRuleManager(),
		CircuitBreaker: circuitbreaker.NewRuleManager(),
		Authority:      authority.NewRuleManager(),
		Hotspot:        hotspot.NewRuleManager(),
	}
	if err := LoadAndApply([]byte(doc), mgrs); err != nil {
		t.Fatalf("LoadAndApply: %v", err)
	}

	flowRules := mgrs.Flow.CurrentRules()
	if len(flowRules["svc.Get"]) != 1 || flowRules["svc.Get"][0].ControlBehavior != flow.WarmUp {
		t.Fatalf("want 1 warmUp flow rule for svc.Get, got %+v", flowRules["svc.Get"])
	}

	breakerRules := mgrs.CircuitBreaker.CurrentRules()
	if len(breakerRules["svc.Get"]) != 1 || breakerRules["svc.Get"][0].Grade != circuitbreaker.ExceptionCount {
		t.Fatalf("want 1 exceptionCount breaker rule, got %+v", breakerRules["svc.Get"])
	}

	authorityRules := mgrs.Authority.CurrentRules()
	if r, ok := authorityRules["svc.Get"]; !ok || r.Strategy != authority.Black {
		t.Fatalf("want a black-list authority rule for svc.Get, got %+v", authorityRules)
	}

	hotspotRules := mgrs.Hotspot.CurrentRules()
	if len(hotspotRules["svc.Batch"]) != 1 {
		t.Fatalf("want 1 hotspot rule for svc.Batch, got %+v", hotspotRules["svc.Batch"])
	}
}

func TestLoadAndApply_RejectsEmptyResourceName(t *testing.T) {
	mgrs := Managers{
		Flow:           flow.NewRuleManager(),
		CircuitBreaker: circuitbreaker.NewRuleManager(),
		Authority:      authority.NewRuleManager(),
		Hotspot:        hotspot.NewRuleManager(),
	}
	bad := `
flow:
  - resource: ""
    grade: qps
    count: 1
`
	if err := LoadAndApply([]byte(bad), mgrs); err == nil {
		t.Fatalf("want an error for an empty resource name")
	}
}
