// Package ruleyaml decodes a declarative YAML rule document into the four
// rule managers' programmatic LoadRules calls, the declarative
// counterpart to building []Rule slices in code — grounded on
// subscription.GeneralSubscriptionParser's decode-then-translate shape.
package ruleyaml

import (
	"fmt"

	"github.com/Resinat/warden/authority"
	"github.com/Resinat/warden/base"
	"github.com/Resinat/warden/circuitbreaker"
	"github.com/Resinat/warden/flow"
	"github.com/Resinat/warden/hotspot"
	"gopkg.in/yaml.v3"
)

// Document is the top-level shape of a rule YAML file: four independent
// lists, one per rule package, all optional.
type Document struct {
	Flow           []FlowRule           `yaml:"flow"`
	CircuitBreaker []CircuitBreakerRule `yaml:"circuitBreaker"`
	Authority      []AuthorityRule      `yaml:"authority"`
	Hotspot        []HotspotRule        `yaml:"hotspot"`
}

// FlowRule mirrors flow.Rule's fields using YAML-friendly string enums,
// except OccupyTimeoutMs and ClusterConfig, which have no YAML field and
// stay at their zero values.
type FlowRule struct {
	Resource          string  `yaml:"resource"`
	Grade             string  `yaml:"grade"` // "qps" | "thread"
	Count             float64 `yaml:"count"`
	Strategy          string  `yaml:"strategy"`        // "direct" | "relate" | "chain"
	ControlBehavior   string  `yaml:"controlBehavior"` // "default" | "warmUp" | "rateLimiter" | "warmUpRateLimiter"
	RefResource       string  `yaml:"refResource"`
	LimitApp          string  `yaml:"limitApp"`
	WarmUpSec         int     `yaml:"warmUpSec"`
	ColdFactor        int     `yaml:"coldFactor"`
	MaxQueueingTimeMs int64   `yaml:"maxQueueingTimeMs"`
	ClusterMode       bool    `yaml:"clusterMode"`
}

// CircuitBreakerRule mirrors circuitbreaker.Rule.
type CircuitBreakerRule struct {
	Resource            string  `yaml:"resource"`
	Grade               string  `yaml:"grade"` // "rt" | "exceptionRatio" | "exceptionCount"
	Count               float64 `yaml:"count"`
	TimeWindowSec       int     `yaml:"timeWindowSec"`
	RTSlowRequestAmount int     `yaml:"rtSlowRequestAmount"`
	MinRequestAmount    float64 `yaml:"minRequestAmount"`
}

// AuthorityRule mirrors authority.Rule.
type AuthorityRule struct {
	Resource string `yaml:"resource"`
	Strategy string `yaml:"strategy"` // "white" | "black"
	LimitApp string `yaml:"limitApp"`
}

// HotspotRule mirrors hotspot.Rule.
type HotspotRule struct {
	Resource          string             `yaml:"resource"`
	ParamIdx          int                `yaml:"paramIdx"`
	Grade             string             `yaml:"grade"`
	Count             float64            `yaml:"count"`
	ControlBehavior   string             `yaml:"controlBehavior"`
	DurationInSec     int                `yaml:"durationInSec"`
	BurstCount        float64            `yaml:"burstCount"`
	MaxQueueingTimeMs int64              `yaml:"maxQueueingTimeMs"`
	ParsedHotItems          map[string]float64 `yaml:"parsedHotItems"`
	ClusterMode             bool               `yaml:"clusterMode"`
	FallbackToLocalWhenFail bool               `yaml:"fallbackToLocalWhenFail"`
}

// Managers bundles the four rule managers a Document is applied to.
type Managers struct {
	Flow           *flow.RuleManager
	CircuitBreaker *circuitbreaker.RuleManager
	Authority      *authority.RuleManager
	Hotspot        *hotspot.RuleManager
}

// LoadAndApply decodes data as a Document and republishes every rule list
// present in it onto the corresponding manager in mgrs. A manager whose
// list is empty in the document is left untouched, so a partial document
// may update just one rule package.
func LoadAndApply(data []byte, mgrs Managers) error {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("ruleyaml: decode: %w", err)
	}

	if len(doc.Flow) > 0 {
		rules, err := toFlowRules(doc.Flow)
		if err != nil {
			return fmt.Errorf("ruleyaml: flow: %w", err)
		}
		if err := mgrs.Flow.LoadRules(rules); err != nil {
			return fmt.Errorf("ruleyaml: flow: %w", err)
		}
	}
	if len(doc.CircuitBreaker) > 0 {
		rules, err := toCircuitBreakerRules(doc.CircuitBreaker)
		if err != nil {
			return fmt.Errorf("ruleyaml: circuitBreaker: %w", err)
		}
		if err := mgrs.CircuitBreaker.LoadRules(rules); err != nil {
			return fmt.Errorf("ruleyaml: circuitBreaker: %w", err)
		}
	}
	if len(doc.Authority) > 0 {
		rules, err := toAuthorityRules(doc.Authority)
		if err != nil {
			return fmt.Errorf("ruleyaml: authority: %w", err)
		}
		if err := mgrs.Authority.LoadRules(rules); err != nil {
			return fmt.Errorf("ruleyaml: authority: %w", err)
		}
	}
	if len(doc.Hotspot) > 0 {
		rules, err := toHotspotRules(doc.Hotspot)
		if err != nil {
			return fmt.Errorf("ruleyaml: hotspot: %w", err)
		}
		if err := mgrs.Hotspot.LoadRules(rules); err != nil {
			return fmt.Errorf("ruleyaml: hotspot: %w", err)
		}
	}
	return nil
}

func toFlowRules(in []FlowRule) ([]flow.Rule, error) {
	out := make([]flow.Rule, 0, len(in))
	for _, r := range in {
		if r.Resource == "" {
			return nil, fmt.Errorf("rule with empty resource")
		}
		grade, err := parseFlowGrade(r.Grade)
		if err != nil {
			return nil, err
		}
		strategy, err := parseFlowStrategy(r.Strategy)
		if err != nil {
			return nil, err
		}
		behavior, err := parseFlowControlBehavior(r.ControlBehavior)
		if err != nil {
			return nil, err
		}
		out = append(out, flow.Rule{
			Resource:          base.Resource{Name: r.Resource},
			Grade:             grade,
			Count:             r.Count,
			Strategy:          strategy,
			ControlBehavior:   behavior,
			RefResource:       r.RefResource,
			LimitApp:          r.LimitApp,
			WarmUpSec:         r.WarmUpSec,
			ColdFactor:        r.ColdFactor,
			MaxQueueingTimeMs: r.MaxQueueingTimeMs,
			ClusterMode:       r.ClusterMode,
		})
	}
	return out, nil
}

func toCircuitBreakerRules(in []CircuitBreakerRule) ([]circuitbreaker.Rule, error) {
	out := make([]circuitbreaker.Rule, 0, len(in))
	for _, r := range in {
		if r.Resource == "" {
			return nil, fmt.Errorf("rule with empty resource")
		}
		grade, err := parseBreakerGrade(r.Grade)
		if err != nil {
			return nil, err
		}
		out = append(out, circuitbreaker.Rule{
			Resource:            base.Resource{Name: r.Resource},
			Grade:               grade,
			Count:               r.Count,
			TimeWindowSec:       r.TimeWindowSec,
			RTSlowRequestAmount: r.RTSlowRequestAmount,
			MinRequestAmount:    r.MinRequestAmount,
		})
	}
	return out, nil
}

func toAuthorityRules(in []AuthorityRule) ([]authority.Rule, error) {
	out := make([]authority.Rule, 0, len(in))
	for _, r := range in {
		if r.Resource == "" {
			return nil, fmt.Errorf("rule with empty resource")
		}
		strategy, err := parseAuthorityStrategy(r.Strategy)
		if err != nil {
			return nil, err
		}
		out = append(out, authority.Rule{
			Resource: base.Resource{Name: r.Resource},
			Strategy: strategy,
			LimitApp: r.LimitApp,
		})
	}
	return out, nil
}

func toHotspotRules(in []HotspotRule) ([]hotspot.Rule, error) {
	out := make([]hotspot.Rule, 0, len(in))
	for _, r := range in {
		if r.Resource == "" {
			return nil, fmt.Errorf("rule with empty resource")
		}
		grade, err := parseHotspotGrade(r.Grade)
		if err != nil {
			return nil, err
		}
		behavior, err := parseHotspotControlBehavior(r.ControlBehavior)
		if err != nil {
			return nil, err
		}
		out = append(out, hotspot.Rule{
			Resource:                base.Resource{Name: r.Resource},
			ParamIdx:                r.ParamIdx,
			Grade:                   grade,
			Count:                   r.Count,
			ControlBehavior:         behavior,
			DurationInSec:           r.DurationInSec,
			BurstCount:              r.BurstCount,
			MaxQueueingTimeMs:       r.MaxQueueingTimeMs,
			ParsedHotItems:          r.ParsedHotItems,
			ClusterMode:             r.ClusterMode,
			FallbackToLocalWhenFail: r.FallbackToLocalWhenFail,
		})
	}
	return out, nil
}

func parseFlowGrade(s string) (flow.Grade, error) {
	switch s {
	case "", "qps":
		return flow.QPS, nil
	case "thread":
		return flow.Thread, nil
	default:
		return 0, fmt.Errorf("unknown grade %q", s)
	}
}

func parseFlowStrategy(s string) (flow.Strategy, error) {
	switch s {
	case "", "direct":
		return flow.Direct, nil
	case "relate":
		return flow.Relate, nil
	case "chain":
		return flow.Chain, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

func parseFlowControlBehavior(s string) (flow.ControlBehavior, error) {
	switch s {
	case "", "default":
		return flow.Default, nil
	case "warmUp":
		return flow.WarmUp, nil
	case "rateLimiter":
		return flow.RateLimiter, nil
	case "warmUpRateLimiter":
		return flow.WarmUpRateLimiter, nil
	default:
		return 0, fmt.Errorf("unknown controlBehavior %q", s)
	}
}

func parseHotspotGrade(s string) (hotspot.Grade, error) {
	switch s {
	case "", "qps":
		return hotspot.QPS, nil
	case "thread":
		return hotspot.Thread, nil
	default:
		return 0, fmt.Errorf("unknown grade %q", s)
	}
}

func parseHotspotControlBehavior(s string) (hotspot.ControlBehavior, error) {
	switch s {
	case "", "default":
		return hotspot.Default, nil
	case "rateLimiter":
		return hotspot.RateLimiter, nil
	default:
		return 0, fmt.Errorf("unknown controlBehavior %q", s)
	}
}

func parseBreakerGrade(s string) (circuitbreaker.Grade, error) {
	switch s {
	case "", "rt":
		return circuitbreaker.RT, nil
	case "exceptionRatio":
		return circuitbreaker.ExceptionRatio, nil
	case "exceptionCount":
		return circuitbreaker.ExceptionCount, nil
	default:
		return 0, fmt.Errorf("unknown grade %q", s)
	}
}

func parseAuthorityStrategy(s string) (authority.Strategy, error) {
	switch s {
	case "", "white":
		return authority.White, nil
	case "black":
		return authority.Black, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}
