// Package warden is a single-process traffic-governance runtime: flow
// control, circuit breaking, hot-parameter control, and authority rules
// wired through one fixed slot-chain pipeline, with an optional cluster
// token service leg for flow and hot-parameter checks.
package warden

import (
	"github.com/Resinat/warden/authority"
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/circuitbreaker"
	"github.com/Resinat/warden/cluster"
	"github.com/Resinat/warden/flow"
	"github.com/Resinat/warden/hotspot"
	"github.com/Resinat/warden/internal/govconfig"
	"github.com/Resinat/warden/internal/timesource"
	"github.com/Resinat/warden/node"
	"github.com/Resinat/warden/system"
)

// Runtime owns every rule manager and node registry for one governed
// process, and the single fixed-order slot chain every resource runs
// through (design §4.1's registration order: NodeSelector, ClusterBuilder,
// Statistic, Authority, System, Flow, Degrade, ParamFlow).
type Runtime struct {
	registry *node.Registry
	clock    timesource.Source
	chain    *base.SlotChain

	Authority      *authority.RuleManager
	Flow           *flow.RuleManager
	CircuitBreaker *circuitbreaker.RuleManager
	Hotspot        *hotspot.RuleManager

	breakerSweeper *circuitbreaker.Sweeper
}

// Config selects the optional cluster-mode collaborator for hot-parameter
// rules. A nil ParamClusterClient means no resource may use ClusterMode;
// rules that set it anyway fall through to the local checker on every call
// (design §4.9's "fall through when the cluster leg is unavailable").
//
// Flow and circuit-breaker rules model ClusterMode as rule data (so the
// effective threshold and cluster collaborator are chosen correctly once
// those legs grow a transport), but this runtime evaluates them locally
// only; ParamFlow is where cluster dispatch is fully wired end to end, as
// the representative instance of the pattern (design §4.9, §4.7).
type Config struct {
	Clock timesource.Source
	// Boot overrides the defaults LoadConfig would read from the
	// environment; NewRuntime reads its LRU capacity and sweep cadence.
	// Pass nil to call govconfig.LoadConfig() internally.
	Boot               *govconfig.Config
	ParamClusterClient hotspot.ParamClusterClient
}

// NewRuntime builds a Runtime with empty rule sets and starts the
// circuit-breaker reset sweeper on cfg.Boot.ClusterSweepTickSpec.
func NewRuntime(cfg Config) (*Runtime, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = timesource.Default
	}
	boot := cfg.Boot
	if boot == nil {
		loaded, err := govconfig.LoadConfig()
		if err != nil {
			return nil, err
		}
		boot = loaded
	}

	registry := node.NewRegistry(clock)

	authorityManager := authority.NewRuleManager()
	flowManager := flow.NewRuleManager()
	breakerManager := circuitbreaker.NewRuleManager()
	hotspotManager := hotspot.NewRuleManagerWithCapacity(boot.ParamCacheCapacity)

	chain := base.NewSlotChain(
		node.NewNodeSelectorSlot(registry),
		node.NewClusterBuilderSlot(registry),
		node.NewStatisticSlot(registry),
		authority.NewSlot(authorityManager),
		system.NewSlot(),
		flow.NewSlot(flowManager, registry, clock),
		circuitbreaker.NewSlot(breakerManager, registry, clock),
		hotspot.NewSlot(hotspotManager, cfg.ParamClusterClient, clock),
	)

	sweeper := circuitbreaker.NewSweeper(breakerManager, clock)
	if err := sweeper.Start(boot.ClusterSweepTickSpec); err != nil {
		return nil, err
	}

	return &Runtime{
		registry:       registry,
		clock:          clock,
		chain:          chain,
		Authority:      authorityManager,
		Flow:           flowManager,
		CircuitBreaker: breakerManager,
		Hotspot:        hotspotManager,
		breakerSweeper: sweeper,
	}, nil
}

// Close stops the runtime's background sweeper. Rule managers and node
// registries need no teardown.
func (rt *Runtime) Close() {
	rt.breakerSweeper.Stop()
}

// Registry exposes the node registry for introspection (QPS/RT/rule
// snapshots), e.g. building an operator dashboard.
func (rt *Runtime) Registry() *node.Registry { return rt.registry }

// TokenClientFor builds a cluster.TokenClient bound to flowID, falling back
// to localFallback when the cluster leg cannot answer authoritatively and
// fallbackToLocalWhenFail is set (design §4.9). The returned client
// satisfies hotspot.ParamClusterClient directly; pass it as
// Config.ParamClusterClient to wire a resource's hot-parameter rules
// through a real cluster.TokenService.
func TokenClientFor(service cluster.TokenService, flowID uint64, fallbackToLocalWhenFail bool, localFallback cluster.LocalFallback) *cluster.TokenClient {
	return cluster.NewTokenClient(service, flowID, fallbackToLocalWhenFail, localFallback)
}
